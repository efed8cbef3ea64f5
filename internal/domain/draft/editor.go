package draft

import "strings"

// Editor captures in-progress edits to a single draft's subject and body.
// It is pure in-memory state: nothing leaves the editor until Save, whose
// result the caller hands to the state store.
type Editor struct {
	active  bool
	draft   EmailDraft
	subject string
	body    string
}

// Start begins editing a draft, seeding the buffer from its current content.
// POST: Editor holds a copy; the original draft is untouched
func (e *Editor) Start(d EmailDraft) {
	e.active = true
	e.draft = d
	e.subject = d.Subject
	e.body = d.Body
}

// Editing reports whether an edit is in progress.
func (e *Editor) Editing() bool {
	return e.active
}

// SetSubject updates the buffered subject.
func (e *Editor) SetSubject(s string) {
	e.subject = s
}

// SetBody updates the buffered body.
func (e *Editor) SetBody(b string) {
	e.body = b
}

// Save commits the buffer into a copy of the draft, marking it edited and
// re-deriving the signature block from the given sender identity.
// PRE: Start was called
// POST: Returns the updated draft and true, or zero value and false if no
// edit was in progress; the editor is reset either way
func (e *Editor) Save(sender Sender) (EmailDraft, bool) {
	if !e.active {
		return EmailDraft{}, false
	}
	d := e.draft
	d.Subject = e.subject
	d.Body = refreshSignature(e.body, sender)
	d.IsEdited = true
	e.reset()
	return d, true
}

// Cancel discards the buffer without committing.
func (e *Editor) Cancel() {
	e.reset()
}

func (e *Editor) reset() {
	*e = Editor{}
}

// refreshSignature replaces a trailing "Best regards," block with a freshly
// rendered signature. Bodies edited to remove the block keep the user's text
// and get the current signature appended.
func refreshSignature(body string, sender Sender) string {
	if idx := strings.LastIndex(body, "Best regards,"); idx >= 0 {
		body = body[:idx]
	}
	body = strings.TrimRight(body, "\n")
	if body != "" {
		body += "\n\n"
	}
	return body + Signature(sender)
}
