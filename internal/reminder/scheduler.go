// Package reminder runs the scheduled jobs: push reminders shortly before
// timed events and the daily agenda email.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"eduportal/internal/calendar"
	"eduportal/internal/metrics"
	"eduportal/internal/models"
	"eduportal/internal/push"
)

// Events is the calendar view the scheduler reads
type Events interface {
	ListEvents() []models.CalendarEvent
	Location() *time.Location
}

// Members resolves member names for messages
type Members interface {
	ListMembers(relationship string) []models.FamilyMember
}

// Tokens returns the stored push token
type Tokens interface {
	PushToken(ctx context.Context) (string, bool, error)
}

// Notifier delivers push messages
type Notifier interface {
	Send(ctx context.Context, messages ...push.Message) ([]push.Ticket, error)
}

// Mailer sends the daily agenda
type Mailer interface {
	IsEnabled() bool
	SendDailyDigest(ctx context.Context, toEmail string, date time.Time, summary calendar.DailySummary, memberNames map[string]string) error
}

// Options configures a Scheduler
type Options struct {
	Events   Events
	Members  Members
	Tokens   Tokens
	Notifier Notifier
	Mailer   Mailer
	DigestTo string
	Lead     time.Duration
}

// Scheduler runs reminder and digest jobs on cron schedules
type Scheduler struct {
	opts Options
	cron *cron.Cron
	now  func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// New creates a scheduler; jobs run in the events' location
func New(opts Options) *Scheduler {
	if opts.Lead <= 0 {
		opts.Lead = 15 * time.Minute
	}
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	return &Scheduler{
		opts: opts,
		cron: cron.New(
			cron.WithLocation(opts.Events.Location()),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		now:  time.Now,
		sent: make(map[string]time.Time),
	}
}

// Start registers the jobs and starts the cron runner. An empty spec disables that job.
func (s *Scheduler) Start(reminderSpec, digestSpec string) error {
	if reminderSpec != "" {
		if _, err := s.cron.AddFunc(reminderSpec, s.reminderJob); err != nil {
			return fmt.Errorf("invalid reminder schedule %q: %w", reminderSpec, err)
		}
	}
	if digestSpec != "" {
		if _, err := s.cron.AddFunc(digestSpec, s.digestJob); err != nil {
			return fmt.Errorf("invalid digest schedule %q: %w", digestSpec, err)
		}
	}
	s.cron.Start()
	slog.Info("scheduler started", "reminders", reminderSpec, "digest", digestSpec, "lead", s.opts.Lead)
	return nil
}

// Stop stops the runner and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) reminderJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.SendReminders(ctx); err != nil {
		slog.Error("reminder job failed", "error", err)
	}
}

func (s *Scheduler) digestJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.SendDigest(ctx); err != nil {
		slog.Error("digest job failed", "error", err)
	}
}

// Due returns the timed events starting within (now, now+lead], skipping
// those already reminded.
func (s *Scheduler) Due(now time.Time) []models.CalendarEvent {
	loc := s.opts.Events.Location()
	now = now.In(loc)
	until := now.Add(s.opts.Lead)

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.CalendarEvent
	for _, e := range s.opts.Events.ListEvents() {
		start, ok := startOf(e, loc)
		if !ok || !start.After(now) || start.After(until) {
			continue
		}
		if _, done := s.sent[reminderKey(e)]; done {
			continue
		}
		due = append(due, e)
	}
	return due
}

// SendReminders pushes a reminder for every due event and returns how many were sent
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	s.prune(now)

	due := s.Due(now)
	if len(due) == 0 {
		return 0, nil
	}

	token, ok, err := s.opts.Tokens.PushToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read push token: %w", err)
	}
	if !ok {
		slog.Debug("no push token registered, skipping reminders", "due", len(due))
		return 0, nil
	}

	names := s.memberNames()
	messages := make([]push.Message, 0, len(due))
	for _, e := range due {
		messages = append(messages, reminderMessage(token, e, names))
	}

	if _, err := s.opts.Notifier.Send(ctx, messages...); err != nil {
		metrics.Notifications.WithLabelValues("push", "error").Add(float64(len(messages)))
		return 0, fmt.Errorf("failed to send reminders: %w", err)
	}
	metrics.Notifications.WithLabelValues("push", "ok").Add(float64(len(messages)))

	s.mu.Lock()
	for _, e := range due {
		s.sent[reminderKey(e)] = now
	}
	s.mu.Unlock()

	slog.Info("reminders sent", "count", len(messages))
	return len(messages), nil
}

// SendDigest emails today's agenda
func (s *Scheduler) SendDigest(ctx context.Context) error {
	if s.opts.Mailer == nil || !s.opts.Mailer.IsEnabled() {
		return nil
	}
	if s.opts.DigestTo == "" {
		return errors.New("digest recipient is not configured")
	}

	now := s.now().In(s.opts.Events.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary := calendar.Daily(s.opts.Events.ListEvents(), today)

	err := s.opts.Mailer.SendDailyDigest(ctx, s.opts.DigestTo, today, summary, s.memberNames())
	metrics.Notifications.WithLabelValues("email", metrics.Result(err)).Inc()
	return err
}

func (s *Scheduler) memberNames() map[string]string {
	names := make(map[string]string)
	if s.opts.Members == nil {
		return names
	}
	for _, m := range s.opts.Members.ListMembers("") {
		names[m.ID] = m.Name
	}
	return names
}

func (s *Scheduler) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.sent {
		if now.Sub(at) > 24*time.Hour {
			delete(s.sent, key)
		}
	}
}

func reminderMessage(token string, e models.CalendarEvent, names map[string]string) push.Message {
	body := "Starts at " + e.StartTime
	if name := names[e.FamilyMemberID]; name != "" {
		body += " for " + name
	}
	if e.Location != "" {
		body += " at " + e.Location
	}
	return push.Message{
		To:    token,
		Title: e.Title,
		Body:  body,
		Data:  map[string]any{"eventId": e.ID, "startDate": e.StartDate},
	}
}

// reminderKey changes when the event is rescheduled, so a moved event is reminded again
func reminderKey(e models.CalendarEvent) string {
	return e.ID + "|" + calendar.EventDateKey(e.StartDate) + "|" + e.StartTime
}

func startOf(e models.CalendarEvent, loc *time.Location) (time.Time, bool) {
	if e.IsAllDay() {
		return time.Time{}, false
	}
	key := calendar.EventDateKey(e.StartDate)
	if key == "" {
		return time.Time{}, false
	}
	start, err := time.ParseInLocation("20060102 15:04", key+" "+e.StartTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}
