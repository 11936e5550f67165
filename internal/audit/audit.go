// Package audit persists session lifecycle and command events.
//
// Recording is best effort: a database failure is logged and swallowed so a
// broken audit store never blocks session traffic.
package audit

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/craysiii/SSHttp/internal/broker"
	"github.com/craysiii/SSHttp/internal/database"
)

// DefaultRetentionDays is how long audit rows are kept when the retention
// setting is unset.
const DefaultRetentionDays = 90

// Recorder writes session and command events to the database. It implements
// the broker's Recorder interface.
type Recorder struct {
	db    *gorm.DB
	nowFn func() time.Time // injectable clock for testing
}

var _ broker.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to db.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db, nowFn: time.Now}
}

// SetNowFunc overrides the clock. Tests only.
func (r *Recorder) SetNowFunc(fn func() time.Time) { r.nowFn = fn }

// SessionStarted records the opening of a session.
func (r *Recorder) SessionStarted(s *broker.Session) {
	rec := database.SessionRecord{
		SessionID: s.ID,
		Host:      s.Host,
		Port:      s.Port,
		Username:  s.Username,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		log.Printf("[audit] failed to record session start %s: %v", s.ID, err)
	}
}

// SessionEnded stamps the session row with its end time and reason.
func (r *Recorder) SessionEnded(sessionID, reason string) {
	now := r.nowFn()
	res := r.db.Model(&database.SessionRecord{}).
		Where("session_id = ? AND ended_at IS NULL", sessionID).
		Updates(map[string]interface{}{"ended_at": now, "end_reason": reason})
	if res.Error != nil {
		log.Printf("[audit] failed to record session end %s: %v", sessionID, res.Error)
	}
}

// CommandExecuted records one forwarded command.
func (r *Recorder) CommandExecuted(sessionID, mode, command string, ok bool) {
	rec := database.CommandRecord{
		SessionID: sessionID,
		Mode:      mode,
		Command:   command,
		Succeeded: ok,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		log.Printf("[audit] failed to record command for %s: %v", sessionID, err)
	}
}

// PurgeOlderThan deletes session and command rows older than the given number
// of days and returns how many rows were removed.
func (r *Recorder) PurgeOlderThan(days int) (int64, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := r.nowFn().AddDate(0, 0, -days)

	var purged int64
	res := r.db.Where("started_at < ?", cutoff).Delete(&database.SessionRecord{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected

	res = r.db.Where("executed_at < ?", cutoff).Delete(&database.CommandRecord{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected

	if purged > 0 {
		log.Printf("[audit] purged %d rows older than %d days", purged, days)
	}
	return purged, nil
}
