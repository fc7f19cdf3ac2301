package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

const jobColumns = "id, status, progress, current_step, error_message, request_json, track_json, download_json, fallback_json, segments_json, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		status       string
		progress     int
		currentStep  sql.NullString
		errorMessage sql.NullString
		requestJSON  string
		trackJSON    sql.NullString
		downloadJSON sql.NullString
		fallbackJSON sql.NullString
		segmentsJSON sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&status,
		&progress,
		&currentStep,
		&errorMessage,
		&requestJSON,
		&trackJSON,
		&downloadJSON,
		&fallbackJSON,
		&segmentsJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          id,
		Status:      Status(status),
		Progress:    progress,
		CurrentStep: currentStep.String,
		Error:       errorMessage.String,
	}
	if err := json.Unmarshal([]byte(requestJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("decode request for job %s: %w", id, err)
	}
	if err := decodeOptional(trackJSON, &job.TrackInfo); err != nil {
		return nil, fmt.Errorf("decode track info for job %s: %w", id, err)
	}
	if err := decodeOptional(downloadJSON, &job.DownloadInfo); err != nil {
		return nil, fmt.Errorf("decode download info for job %s: %w", id, err)
	}
	if err := decodeOptional(fallbackJSON, &job.FallbackMetadata); err != nil {
		return nil, fmt.Errorf("decode fallback metadata for job %s: %w", id, err)
	}
	if err := decodeOptional(segmentsJSON, &job.Segments); err != nil {
		return nil, fmt.Errorf("decode segments for job %s: %w", id, err)
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	return job, nil
}

func decodeOptional[T any](raw sql.NullString, dst **T) error {
	if !raw.Valid || raw.String == "" {
		*dst = nil
		return nil
	}
	var value T
	if err := json.Unmarshal([]byte(raw.String), &value); err != nil {
		return err
	}
	*dst = &value
	return nil
}

func encodeOptional[T any](value *T) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
