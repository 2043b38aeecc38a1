package backfill

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/rapport/internal/chatlog"
)

// exportExts are the file extensions picked up from an export directory.
var exportExts = map[string]bool{
	".txt": true,
	".csv": true,
	".tsv": true,
}

// IsExportFile reports whether path looks like a chat export.
func IsExportFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return exportExts[strings.ToLower(filepath.Ext(base))]
}

// exportFile is one export read and pre-parsed for filtering and dedup.
type exportFile struct {
	path     string
	content  string
	contact  string
	format   chatlog.Format
	messages []chatlog.Message
	fp       fileFingerprint
}

// FileSummary is the per-file line of a batch digest.
type FileSummary struct {
	Path      string
	Date      string
	Contact   string
	Status    string
	Messages  int
	Sessions  int
	Memories  int
	Duplicate bool
	Errors    int
}

// whatsappPrefixes are the names WhatsApp gives exported chats.
var whatsappPrefixes = []string{
	"whatsapp chat with ",
	"whatsapp chat - ",
	"chat with ",
}

// ContactFromFilename extracts the contact name from an export file name,
// e.g. "WhatsApp Chat with Priya.txt". It returns "" when the name carries none.
func ContactFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	lower := strings.ToLower(name)
	for _, prefix := range whatsappPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(name[len(prefix):])
		}
	}
	return ""
}

// RelationshipID derives a stable relationship id for an owner and contact,
// so re-imports of the same chat land on the same relationship.
func RelationshipID(owner uuid.UUID, contact string) uuid.UUID {
	return uuid.NewSHA1(owner, []byte(strings.ToLower(strings.TrimSpace(contact))))
}

func firstDate(msgs []chatlog.Message) string {
	for _, m := range msgs {
		if !m.TimestampFallback {
			return m.Timestamp.Format("2006-01-02")
		}
	}
	return ""
}

// inDateRange checks if any message with a real timestamp falls within
// since/until. Zero bounds are open.
func inDateRange(msgs []chatlog.Message, since, until time.Time) bool {
	if since.IsZero() && until.IsZero() {
		return true
	}

	for _, m := range msgs {
		if m.TimestampFallback {
			continue
		}
		if !since.IsZero() && m.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && m.Timestamp.After(until) {
			continue
		}
		return true
	}
	return false
}
