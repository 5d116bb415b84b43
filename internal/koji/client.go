// Package koji applies destination tags to builds through the koji hub
// XML-RPC API.
package koji

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/kolo/xmlrpc"
	"github.com/rs/zerolog/log"
)

// ErrTagFailed wraps a failed tagBuild call for a single tag.
var ErrTagFailed = errors.New("tag build failed")

// TagResult is the outcome of one tagBuild call.
type TagResult struct {
	Tag string
	Err error
}

// Client holds the koji hub connection profile. One authenticated
// session is opened per ApplyTags call and released afterwards.
type Client struct {
	HubURL   string
	User     string
	Password string
}

// NewClient creates a koji client for the given hub URL and credentials.
func NewClient(hubURL, user, password string) *Client {
	return &Client{HubURL: hubURL, User: user, Password: password}
}

// ApplyTags tags a build with each destination tag in order. A failure
// on one tag is recorded and the loop continues with the next; only a
// failure to open the session aborts the batch. The session is logged
// out even when every tagBuild call fails.
func (c *Client) ApplyTags(ctx context.Context, nvr string, tags []string) ([]TagResult, error) {
	sess, err := c.login()
	if err != nil {
		return nil, fmt.Errorf("koji login failed: %w", err)
	}
	defer sess.logout()

	results := make([]TagResult, 0, len(tags))
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if err := sess.tagBuild(tag, nvr); err != nil {
			log.Error().Err(err).Str("tag", tag).Str("nvr", nvr).Msg("failed to tag build")
			results = append(results, TagResult{Tag: tag, Err: fmt.Errorf("%w: %s: %v", ErrTagFailed, tag, err)})
			continue
		}
		log.Info().Str("tag", tag).Str("nvr", nvr).Msg("build tagged")
		results = append(results, TagResult{Tag: tag})
	}
	return results, nil
}

// session is one authenticated koji session. Koji carries session
// credentials as query parameters with a call counter that must
// increase monotonically.
type session struct {
	hubURL  string
	id      int64
	key     string
	callnum int
}

type sessionInfo struct {
	ID  int64  `xmlrpc:"session-id"`
	Key string `xmlrpc:"session-key"`
}

func (c *Client) login() (*session, error) {
	client, err := xmlrpc.NewClient(c.HubURL, nil)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var info sessionInfo
	if err := client.Call("login", []interface{}{c.User, c.Password}, &info); err != nil {
		return nil, err
	}
	return &session{hubURL: c.HubURL, id: info.ID, key: info.Key}, nil
}

// call issues one authenticated hub call. The hub rejects reused call
// numbers, so each call gets a fresh counter value.
func (s *session) call(method string, args []interface{}, reply interface{}) error {
	u := fmt.Sprintf("%s?session-id=%d&session-key=%s&callnum=%d",
		s.hubURL, s.id, url.QueryEscape(s.key), s.callnum)
	s.callnum++

	client, err := xmlrpc.NewClient(u, nil)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call(method, args, reply)
}

func (s *session) tagBuild(tag, nvr string) error {
	var taskID int64
	return s.call("tagBuild", []interface{}{tag, nvr}, &taskID)
}

func (s *session) logout() {
	var reply interface{}
	if err := s.call("logout", nil, &reply); err != nil {
		log.Warn().Err(err).Msg("koji logout failed")
	}
}
