package mailbox

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mailtools/mailbridge/internal/mailerr"
)

// Summary is one row in a mailbox listing.
type Summary struct {
	UID     uint32
	Subject string
	From    string
	To      string
	Date    time.Time
	Unread  bool
}

// ListRecent fetches envelopes for the newest count messages in the
// mailbox, sorted by date descending. Server-returned order is not
// trusted; the sort happens after retrieval.
func (s *Session) ListRecent(mailboxName string, count uint32) ([]Summary, error) {
	var summaries []Summary

	err := s.WithMailbox(mailboxName, func(c *client.Client, status *imap.MailboxStatus) error {
		if status.Messages == 0 {
			return nil
		}
		from := uint32(1)
		if status.Messages > count {
			from = status.Messages - count + 1
		}

		seqset := new(imap.SeqSet)
		seqset.AddRange(from, status.Messages)

		items := []imap.FetchItem{
			imap.FetchEnvelope, imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate,
		}
		messages := make(chan *imap.Message, count)
		done := make(chan error, 1)
		go func() {
			done <- c.Fetch(seqset, items, messages)
		}()

		for msg := range messages {
			summaries = append(summaries, summarize(msg))
		}
		if err := <-done; err != nil {
			return mailerr.E(mailerr.KindConnectionFailed, "mailbox.list",
				fmt.Errorf("fetch envelopes: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.After(summaries[j].Date)
	})
	return summaries, nil
}

// FetchMessage retrieves one message by UID with its full source,
// envelope, and body structure. A UID that resolves to no message is a
// NotFound error.
func (s *Session) FetchMessage(mailboxName string, uid uint32) (Message, error) {
	const op = "mailbox.fetch"
	var out Message

	err := s.WithMailbox(mailboxName, func(c *client.Client, _ *imap.MailboxStatus) error {
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{
			imap.FetchEnvelope, imap.FetchUid, imap.FetchBodyStructure, section.FetchItem(),
		}
		messages := make(chan *imap.Message, 1)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(seqset, items, messages)
		}()

		var fetched *imap.Message
		for msg := range messages {
			if fetched == nil {
				fetched = msg
			}
		}
		if err := <-done; err != nil {
			return mailerr.E(mailerr.KindConnectionFailed, op,
				fmt.Errorf("uid fetch %d: %w", uid, err))
		}
		if fetched == nil {
			return mailerr.E(mailerr.KindNotFound, op,
				fmt.Errorf("no message with uid %d in %s", uid, mailboxName))
		}

		out = Message{
			UID:       fetched.Uid,
			Envelope:  fetched.Envelope,
			Structure: fetched.BodyStructure,
		}
		if body := fetched.GetBody(section); body != nil {
			raw, err := io.ReadAll(body)
			if err != nil {
				return mailerr.E(mailerr.KindConnectionFailed, op,
					fmt.Errorf("read body: %w", err))
			}
			out.Raw = raw
		}
		return nil
	})
	if err != nil {
		return Message{}, err
	}
	return out, nil
}

func summarize(msg *imap.Message) Summary {
	s := Summary{UID: msg.Uid, Unread: true}
	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			s.Unread = false
		}
	}
	if env := msg.Envelope; env != nil {
		s.Subject = env.Subject
		s.From = FormatAddresses(env.From)
		s.To = FormatAddresses(env.To)
		s.Date = env.Date
	}
	if s.Date.IsZero() {
		s.Date = msg.InternalDate
	}
	return s
}

// FormatAddresses renders an envelope address list as a
// comma-separated string, with display names when present.
func FormatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		addr := a.MailboxName + "@" + a.HostName
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, addr))
		} else {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
