package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/validation"
)

const backupVersion = "1.0"

// BackupData is the plain JSON form of every collection
type BackupData struct {
	Version            string                 `json:"version"`
	ExportedAt         time.Time              `json:"exported_at"`
	DatabaseType       string                 `json:"database_type"`
	OnboardingComplete bool                   `json:"onboarding_complete"`
	FamilyMembers      []models.FamilyMember  `json:"family_members"`
	CalendarEvents     []models.CalendarEvent `json:"calendar_events"`
}

// BackupService exports and imports the family collections. Credentials and
// push tokens are device secrets and are never exported.
type BackupService struct {
	familyRepo   *repository.FamilyRepository
	calendarRepo *repository.CalendarRepository
	settingsRepo *repository.SettingsRepository
	databaseType string
}

// NewBackupService creates a new backup service
func NewBackupService(familyRepo *repository.FamilyRepository, calendarRepo *repository.CalendarRepository, settingsRepo *repository.SettingsRepository, databaseType string) *BackupService {
	return &BackupService{
		familyRepo:   familyRepo,
		calendarRepo: calendarRepo,
		settingsRepo: settingsRepo,
		databaseType: databaseType,
	}
}

// Snapshot collects the current collections
func (s *BackupService) Snapshot(ctx context.Context) *BackupData {
	return &BackupData{
		Version:            backupVersion,
		ExportedAt:         time.Now().UTC(),
		DatabaseType:       s.databaseType,
		OnboardingComplete: s.settingsRepo.IsOnboardingComplete(ctx),
		FamilyMembers:      s.familyRepo.List(),
		CalendarEvents:     s.calendarRepo.List(),
	}
}

// Export writes a backup to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportTo(ctx, file); err != nil {
		return err
	}
	return file.Close()
}

// ExportTo writes a backup to w
func (s *BackupService) ExportTo(ctx context.Context, w io.Writer) error {
	backup := s.Snapshot(ctx)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("backup exported", "family_members", len(backup.FamilyMembers), "calendar_events", len(backup.CalendarEvents))
	return nil
}

// Import restores a backup file. See ImportFromReader.
func (s *BackupService) Import(ctx context.Context, inputPath string, replace bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(ctx, file, replace)
}

// ImportFromReader restores a backup. With replace the collections become
// exactly the backup contents; otherwise records whose id is not already
// present are appended.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, replace bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	slog.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	members := merge(nil, validMembers(backup.FamilyMembers))
	events := merge(nil, validEvents(backup.CalendarEvents))
	if !replace {
		members = merge(s.familyRepo.List(), members)
		events = merge(s.calendarRepo.List(), events)
	}
	events = detachUnknownMembers(events, members)

	if err := s.familyRepo.ReplaceAll(ctx, members); err != nil {
		return fmt.Errorf("failed to import family members: %w", err)
	}
	if err := s.calendarRepo.ReplaceAll(ctx, events); err != nil {
		return fmt.Errorf("failed to import calendar events: %w", err)
	}
	if backup.OnboardingComplete {
		if err := s.settingsRepo.SetOnboardingComplete(ctx); err != nil {
			return fmt.Errorf("failed to import onboarding flag: %w", err)
		}
	}

	slog.Info("backup imported", "family_members", len(members), "calendar_events", len(events), "replace", replace)
	return nil
}

// validMembers drops records without an id or a name
func validMembers(in []models.FamilyMember) []models.FamilyMember {
	out := make([]models.FamilyMember, 0, len(in))
	for _, m := range in {
		if m.ID == "" || validation.ValidateRequired("name", m.Name) != nil {
			slog.Warn("skipping invalid family member in backup", "id", m.ID)
			continue
		}
		out = append(out, m)
	}
	return out
}

// validEvents drops records that fail the checks applied on AddEvent
func validEvents(in []models.CalendarEvent) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(in))
	for _, e := range in {
		err := validation.ValidateRequired("id", e.ID)
		if err == nil {
			err = validation.ValidateRequired("title", e.Title)
		}
		if err == nil {
			err = validation.ValidateDate("startDate", e.StartDate)
		}
		if err == nil {
			err = validation.ValidateClock("startTime", e.StartTime)
		}
		if err == nil {
			err = validation.ValidateClock("endTime", e.EndTime)
		}
		if err != nil {
			slog.Warn("skipping invalid calendar event in backup", "id", e.ID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out
}

// detachUnknownMembers clears member references that name no member in members
func detachUnknownMembers(events []models.CalendarEvent, members []models.FamilyMember) []models.CalendarEvent {
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}
	out := make([]models.CalendarEvent, len(events))
	for i, e := range events {
		if e.FamilyMemberID != "" && !known[e.FamilyMemberID] {
			e.FamilyMemberID = ""
		}
		out[i] = e
	}
	return out
}

// merge appends incoming records whose id is not already present; with no
// existing records it removes duplicate ids from incoming.
func merge[T repository.Record](existing, incoming []T) []T {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item.RecordID()] = true
	}
	out := existing
	for _, item := range incoming {
		if seen[item.RecordID()] {
			continue
		}
		seen[item.RecordID()] = true
		out = append(out, item)
	}
	return out
}
