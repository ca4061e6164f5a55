package llm

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Base64 returns the raw base64 payload without the data URL prefix.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" URL. A bare base64
// payload is accepted too; its MIME type is sniffed from the bytes.
func ParseDataURL(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, fmt.Errorf("empty image data")
	}

	mime := ""
	payload := s
	if i := strings.Index(s, ","); i != -1 && strings.HasPrefix(strings.ToLower(s[:i]), "data:") {
		header := s[len("data:"):i]
		payload = s[i+1:]
		if !strings.HasSuffix(strings.ToLower(header), ";base64") {
			return Image{}, fmt.Errorf("image data URL must be base64 encoded")
		}
		mime = header[:strings.LastIndex(header, ";")]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decoding image data: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image data")
	}
	if mime == "" {
		mime = SniffMIME(data)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// SniffMIME guesses an image MIME type from magic bytes.
func SniffMIME(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8:
		return "image/jpeg"
	case len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(b) >= 6 && (string(b[:6]) == "GIF87a" || string(b[:6]) == "GIF89a"):
		return "image/gif"
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
	Images  []Image
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// HasImages reports whether any message carries an image.
func (r CompletionRequest) HasImages() bool {
	for _, m := range r.Messages {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
