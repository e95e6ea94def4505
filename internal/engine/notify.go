package engine

import "github.com/tildaslashalef/docsync/internal/ulid"

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-visible message. A notification carrying the ID of an
// earlier one replaces it.
type Notification struct {
	ID         string
	Level      Level
	Title      string
	Message    string
	Persistent bool
}

// Notifier renders notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// Hooks are fire-and-forget callbacks for front-ends. Nil fields are skipped.
type Hooks struct {
	OnDocumentUploaded func(name string, size int64)
	OnDocumentDeleted  func(name string)
	OnDocumentOpened   func(name string)
	OnFolderSelected   func(scope Scope)
	OnRefreshRequested func()
}

func (h Hooks) documentUploaded(name string, size int64) {
	if h.OnDocumentUploaded != nil {
		h.OnDocumentUploaded(name, size)
	}
}

func (h Hooks) documentDeleted(name string) {
	if h.OnDocumentDeleted != nil {
		h.OnDocumentDeleted(name)
	}
}

func (h Hooks) documentOpened(name string) {
	if h.OnDocumentOpened != nil {
		h.OnDocumentOpened(name)
	}
}

func (h Hooks) folderSelected(scope Scope) {
	if h.OnFolderSelected != nil {
		h.OnFolderSelected(scope)
	}
}

func (h Hooks) refreshRequested() {
	if h.OnRefreshRequested != nil {
		h.OnRefreshRequested()
	}
}

// notifyError raises a transient error notification
func (e *Engine) notifyError(title string, err error) {
	e.notifier.Notify(Notification{
		ID:      ulid.NotificationID(),
		Level:   LevelError,
		Title:   title,
		Message: err.Error(),
	})
}

func (e *Engine) notify(level Level, title, message string) {
	e.notifier.Notify(Notification{
		ID:      ulid.NotificationID(),
		Level:   level,
		Title:   title,
		Message: message,
	})
}
