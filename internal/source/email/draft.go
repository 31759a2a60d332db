package email

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailextract/internal/model"
)

// ComposeReply renders a plain-text reply to original from the given
// address, threaded with In-Reply-To and References.
func ComposeReply(from string, original model.Message, body string, now time.Time) ([]byte, error) {
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parsing sender %q: %w", from, err)
	}
	recipient, err := mail.ParseAddress(original.From)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", original.From, err)
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{sender})
	h.SetAddressList("To", []*mail.Address{recipient})
	h.SetSubject(replySubject(original.Subject))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if original.MessageID != "" {
		h.SetMsgIDList("In-Reply-To", []string{original.MessageID})
		h.SetMsgIDList("References", []string{original.MessageID})
	}
	if err := h.GenerateMessageIDWithHostname(domainOf(sender.Address)); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("writing draft header: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("writing draft body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing draft: %w", err)
	}
	return buf.Bytes(), nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
