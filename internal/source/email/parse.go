// Package email reads messages from IMAP mailboxes and .eml files.
package email

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailextract/internal/model"
)

// ParseMessage reads an RFC 5322 message. The body is the first text/plain
// part, or the first text/html part stripped of markup when there is no
// plain text. Attachments are skipped.
func ParseMessage(r io.Reader) (model.Message, error) {
	mr, err := mail.CreateReader(r)
	if mr == nil {
		return model.Message{}, fmt.Errorf("reading message header: %w", err)
	}
	defer mr.Close()

	msg := headerToMessage(mr.Header)

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if part == nil {
			return msg, fmt.Errorf("reading message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	msg.Body = strings.TrimSpace(textBody)
	if msg.Body == "" {
		msg.Body = stripHTML(htmlBody)
	}
	return msg, nil
}

func headerToMessage(h mail.Header) model.Message {
	var msg model.Message

	msg.Subject, _ = h.Subject()
	msg.MessageID, _ = h.MessageID()
	msg.Date, _ = h.Date()

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = formatAddress(from[0])
	}
	if to, err := h.AddressList("To"); err == nil {
		for _, addr := range to {
			msg.To = append(msg.To, formatAddress(addr))
		}
	}
	return msg
}

// formatAddress renders "Name <addr>" without MIME encoding the name.
func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// blockPattern matches elements whose contents never reach the reader.
var blockPattern = regexp.MustCompile(`(?is)<(style|script|head)[^>]*>.*?</(style|script|head)>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := blockPattern.ReplaceAllString(html, "")
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
