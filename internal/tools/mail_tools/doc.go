// Package mail_tools provides MCP tools for working with mail accounts
// over IMAP and SMTP: account login and management, mailbox listing,
// message body retrieval, and outbound send.
package mail_tools
