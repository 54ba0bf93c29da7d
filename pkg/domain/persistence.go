package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// PersistedState is the narrow slice of the store that survives restarts.
// Transient data (chat, posts, history, bookings, ride logs) is intentionally
// excluded.
type PersistedState struct {
	Farms            []Farm           `json:"farms"`
	Stables          []Stable         `json:"stables"`
	Horses           []Horse          `json:"horses"`
	Paddocks         []Paddock        `json:"paddocks"`
	HorseDayStatuses []HorseDayStatus `json:"horse_day_statuses"`
	Users            []UserProfile    `json:"users"`
	CurrentStableID  string           `json:"current_stable_id"`
	CurrentUserID    string           `json:"current_user_id"`
}

// EncodePersistedState serialises the slice for the durable boundary.
func EncodePersistedState(st PersistedState) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode persisted state: %w", err)
	}
	return data, nil
}

// DecodePersistedState rehydrates a slice produced by EncodePersistedState.
func DecodePersistedState(data []byte) (PersistedState, error) {
	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return PersistedState{}, fmt.Errorf("decode persisted state: %w", err)
	}
	return st, nil
}

// BucketOrder lists the stable bucket names relational sinks persist the
// snapshot under, one row per collection plus one for the session scalars.
var BucketOrder = []string{"farms", "stables", "horses", "paddocks", "day_statuses", "users", "session"}

type sessionBucket struct {
	CurrentStableID string `json:"current_stable_id"`
	CurrentUserID   string `json:"current_user_id"`
}

// SplitBuckets decodes an encoded snapshot and re-encodes it as one JSON
// payload per bucket, keyed per BucketOrder.
func SplitBuckets(data []byte) (map[string][]byte, error) {
	st, err := DecodePersistedState(data)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(BucketOrder))
	for _, bucket := range BucketOrder {
		var payload any
		switch bucket {
		case "farms":
			payload = st.Farms
		case "stables":
			payload = st.Stables
		case "horses":
			payload = st.Horses
		case "paddocks":
			payload = st.Paddocks
		case "day_statuses":
			payload = st.HorseDayStatuses
		case "users":
			payload = st.Users
		case "session":
			payload = sessionBucket{CurrentStableID: st.CurrentStableID, CurrentUserID: st.CurrentUserID}
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode bucket %s: %w", bucket, err)
		}
		out[bucket] = encoded
	}
	return out, nil
}

// AssembleBuckets is the inverse of SplitBuckets. Missing buckets are treated
// as empty collections.
func AssembleBuckets(buckets map[string][]byte) ([]byte, error) {
	var st PersistedState
	for bucket, payload := range buckets {
		if len(payload) == 0 {
			continue
		}
		var err error
		switch bucket {
		case "farms":
			err = json.Unmarshal(payload, &st.Farms)
		case "stables":
			err = json.Unmarshal(payload, &st.Stables)
		case "horses":
			err = json.Unmarshal(payload, &st.Horses)
		case "paddocks":
			err = json.Unmarshal(payload, &st.Paddocks)
		case "day_statuses":
			err = json.Unmarshal(payload, &st.HorseDayStatuses)
		case "users":
			err = json.Unmarshal(payload, &st.Users)
		case "session":
			var session sessionBucket
			if err = json.Unmarshal(payload, &session); err == nil {
				st.CurrentStableID = session.CurrentStableID
				st.CurrentUserID = session.CurrentUserID
			}
		}
		if err != nil {
			return nil, fmt.Errorf("decode bucket %s: %w", bucket, err)
		}
	}
	return EncodePersistedState(st)
}

// SnapshotSink is the durable key/value boundary the core persists through.
// Load returns ok=false when no snapshot exists yet. Failures are logged by
// the caller and never surfaced to the action layer.
type SnapshotSink interface {
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	ExportPersisted() PersistedState
	ImportPersisted(PersistedState) error
	Close() error
}
