package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionPayslipCreate = "payroll.payslip.create"
	ActionPayslipEmail  = "payroll.payslip.email"
	ActionHolidayUpsert = "holiday.upsert"
	ActionHolidayDelete = "holiday.delete"
	ActionHolidayReload = "holiday.reload"
)

type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Details    any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorUserId,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	IP         string          `json:"ip,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorUser  string
}

func (f Filter) matches(e Event) bool {
	return (f.Action == "" || f.Action == e.Action) &&
		(f.EntityType == "" || f.EntityType == e.EntityType) &&
		(f.ActorUser == "" || f.ActorUser == e.ActorID)
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Log records entries and reads them back newest first.
type Log interface {
	Recorder
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}
	var detailsJSON any
	if len(details) > 0 {
		detailsJSON = []byte(details)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, details_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, nullIfEmpty(entry.ActorID), entry.Action, entry.EntityType, entry.EntityID, detailsJSON, entry.RequestID, entry.IP)
	return err
}

const filterClause = `
    WHERE ($1 = '' OR action = $1)
      AND ($2 = '' OR entity_type = $2)
      AND ($3 = '' OR actor_user_id = $3)`

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+filterClause,
		filter.Action, filter.EntityType, filter.ActorUser).Scan(&total)
	return total, err
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(actor_user_id, ''), action, entity_type, COALESCE(entity_id, ''),
           COALESCE(request_id, ''), COALESCE(ip, ''), details_json, created_at
    FROM audit_events`+filterClause+`
    ORDER BY created_at DESC
    LIMIT $4 OFFSET $5
  `, filter.Action, filter.EntityType, filter.ActorUser, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var details []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.RequestID, &e.IP, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryLog keeps events in process; used when no database is configured.
type MemoryLog struct {
	mu     sync.RWMutex
	events []Event
	now    func() time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

func (m *MemoryLog) Record(_ context.Context, entry Entry) error {
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{
		ID:         strconv.Itoa(len(m.events) + 1),
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		RequestID:  entry.RequestID,
		IP:         entry.IP,
		Details:    details,
		CreatedAt:  m.now().UTC(),
	})
	return nil
}

func (m *MemoryLog) Count(_ context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, e := range m.events {
		if filter.matches(e) {
			total++
		}
	}
	return total, nil
}

func (m *MemoryLog) List(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	m.mu.RLock()
	var matched []Event
	for _, e := range m.events {
		if filter.matches(e) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func marshalDetails(details any) (json.RawMessage, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
