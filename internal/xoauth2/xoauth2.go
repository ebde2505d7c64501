// Package xoauth2 implements the SASL XOAUTH2 mechanism used by Gmail
// and Outlook for bearer-token IMAP and SMTP authentication.
package xoauth2

import (
	"fmt"

	"github.com/emersion/go-sasl"
)

type client struct {
	username    string
	accessToken string
	done        bool
}

// NewClient returns a sasl.Client for the XOAUTH2 mechanism.
func NewClient(username, accessToken string) sasl.Client {
	return &client{username: username, accessToken: accessToken}
}

func (c *client) Start() (mech string, ir []byte, err error) {
	ir = []byte("user=" + c.username + "\x01auth=Bearer " + c.accessToken + "\x01\x01")
	return "XOAUTH2", ir, nil
}

// Next handles the error challenge: on failure the server sends a JSON
// status blob and expects an empty response before issuing its final NO.
func (c *client) Next(challenge []byte) ([]byte, error) {
	if c.done {
		return nil, fmt.Errorf("xoauth2: unexpected server challenge %q", challenge)
	}
	c.done = true
	return []byte{}, nil
}
