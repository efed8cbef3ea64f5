package email

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in the body is escaped (WithUnsafe is NOT set), so edited draft
// text cannot inject markup into the outgoing email.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML converts a plain draft body into the HTML payload the provider
// expects. Hard wraps keep the bullet lines of the order template intact.
// On a render failure the plain body is sent as-is rather than dropping
// the email.
func RenderHTML(body string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(body), &buf); err != nil {
		slog.Warn("email_html_render_failed", "error", err.Error())
		return body
	}
	return buf.String()
}
