package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/source"
)

// IMAPClient wraps go-imap v2 for reading a mailbox and storing drafts.
// Every call opens and closes its own connection.
type IMAPClient struct {
	cfg      model.IMAPConfig
	password string
	now      func() time.Time
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(cfg model.IMAPConfig, password string) *IMAPClient {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.DraftsMailbox == "" {
		cfg.DraftsMailbox = "Drafts"
	}
	return &IMAPClient{cfg: cfg, password: password, now: time.Now}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout/Close on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.cfg.Host + ":" + c.cfg.Port

	var client *imapclient.Client
	var err error

	if c.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.cfg.Username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Server:  c.cfg.Host,
			Message: fmt.Sprintf("authentication failed for %s: %v", c.cfg.Username, err),
		}
	}

	return client, nil
}

// Recent returns up to limit envelopes from the configured mailbox
// received in the last days days, oldest first.
func (c *IMAPClient) Recent(ctx context.Context, days, limit int) ([]source.Envelope, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.cfg.Mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{}
	if days > 0 {
		criteria.Since = c.now().AddDate(0, 0, -days)
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Keep the most recent ones.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var envelopes []source.Envelope
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		envelopes = append(envelopes, envelopeFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return envelopes, fmt.Errorf("fetching envelopes: %w", err)
	}

	return envelopes, nil
}

// Message fetches the full message for uid without marking it as seen.
func (c *IMAPClient) Message(ctx context.Context, uid uint32) (model.Message, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return model.Message{}, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.cfg.Mailbox, nil).Wait(); err != nil {
		return model.Message{}, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return model.Message{}, fmt.Errorf("message UID %d: %w", uid, source.ErrMessageNotFound)
	}

	buf, err := msg.Collect()
	if err != nil {
		return model.Message{}, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return model.Message{}, fmt.Errorf("message UID %d has no body", uid)
	}

	parsed, err := ParseMessage(bytes.NewReader(raw))
	if err != nil {
		return model.Message{}, fmt.Errorf("parsing message UID %d: %w", uid, err)
	}
	parsed.UID = uid

	if err := fetchCmd.Close(); err != nil {
		return parsed, fmt.Errorf("closing fetch: %w", err)
	}

	return parsed, nil
}

// SaveDraft appends a reply to original to the drafts mailbox.
func (c *IMAPClient) SaveDraft(ctx context.Context, original model.Message, body string) error {
	now := c.now()
	draft, err := ComposeReply(c.cfg.Username, original, body, now)
	if err != nil {
		return fmt.Errorf("composing draft: %w", err)
	}

	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	appendCmd := client.Append(c.cfg.DraftsMailbox, int64(len(draft)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft, imap.FlagSeen},
		Time:  now,
	})
	if _, err := appendCmd.Write(draft); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing draft: %w", err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing draft: %w", err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending draft to %s: %w", c.cfg.DraftsMailbox, err)
	}
	return nil
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) source.Envelope {
	env := source.Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.MessageID = buf.Envelope.MessageID
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				env.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				env.From = from.Addr()
			}
		}
	}

	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			env.Seen = true
		}
	}

	return env
}
