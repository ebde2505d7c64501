// Package common holds the helpers shared by every mail tool package:
// resolving which stored account a tool call targets and wrapping
// handlers with invocation metrics.
package common
