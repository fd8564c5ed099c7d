package mail

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"
)

func buildMessage(cfg Config, msg Message) ([]byte, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("mail: recipient required")
	}
	if cfg.Sender == "" {
		return nil, errors.New("mail: sender required")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return nil, errors.New("mail: text or html body required")
	}
	if !safeHeaderValue(msg.To) {
		return nil, errors.New("mail: recipient contains control characters")
	}
	for k, v := range msg.Headers {
		if !validHeaderName(k) || !safeHeaderValue(v) {
			return nil, fmt.Errorf("mail: header %q has an invalid name or value", k)
		}
	}

	var b strings.Builder
	from := cfg.Sender
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.SenderName), cfg.Sender)
	}
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", randomToken(), messageIDDomain(cfg))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := msg.Headers[k]; k != "" && v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		boundary := "alt-" + randomToken()
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		writePart(&b, boundary, "text/plain", msg.TextBody)
		writePart(&b, boundary, "text/html", msg.HTMLBody)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case msg.HTMLBody != "":
		writeBody(&b, "text/html", msg.HTMLBody)
	default:
		writeBody(&b, "text/plain", msg.TextBody)
	}
	return []byte(b.String()), nil
}

// safeHeaderValue rejects CR, LF and every other control character, so a
// value can never start a new header line or the body.
func safeHeaderValue(v string) bool {
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func validHeaderName(k string) bool {
	for _, r := range k {
		if r <= 0x20 || r >= 0x7f || r == ':' {
			return false
		}
	}
	return true
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	writeBody(b, contentType, body)
}

func writeBody(b *strings.Builder, contentType, body string) {
	fmt.Fprintf(b, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
}

func messageIDDomain(cfg Config) string {
	if at := strings.LastIndex(cfg.Sender, "@"); at >= 0 && at < len(cfg.Sender)-1 {
		return cfg.Sender[at+1:]
	}
	if cfg.Host != "" {
		return cfg.Host
	}
	return "localhost"
}

func randomToken() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
