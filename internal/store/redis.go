package store

import (
	"context"
	"errors"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/epcr/internal/report"
)

// DefaultRedisKey is the hash that holds the report collection.
const DefaultRedisKey = "epcr:" + Collection

// Redis keeps the collection in one hash: field = report id, value = report JSON.
type Redis struct {
	client *redis.Client
	key    string
}

var _ Medium = (*Redis)(nil)

// NewRedis wraps an existing client. An empty key selects DefaultRedisKey.
func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// Add uses HSETNX so an existing id is rejected rather than overwritten.
func (s *Redis) Add(ctx context.Context, r report.PatientReport) error {
	data, err := marshalReport(r)
	if err != nil {
		return storageErr("add", r.ID, err)
	}

	set, err := s.client.HSetNX(ctx, s.key, r.ID, data).Result()
	if err != nil {
		return storageErr("add", r.ID, err)
	}
	if !set {
		return storageErr("add", r.ID, ErrDuplicateID)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, id string) (report.PatientReport, bool, error) {
	data, err := s.client.HGet(ctx, s.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return report.PatientReport{}, false, nil
	}
	if err != nil {
		return report.PatientReport{}, false, storageErr("get", id, err)
	}

	r, err := unmarshalReport(data)
	if err != nil {
		return report.PatientReport{}, false, storageErr("get", id, err)
	}
	return r, true, nil
}

// GetAll returns reports ordered by creation time, then id. Hash iteration
// order is not stable, so an order is imposed here.
func (s *Redis) GetAll(ctx context.Context) ([]report.PatientReport, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, storageErr("getAll", "", err)
	}

	reports := make([]report.PatientReport, 0, len(fields))
	for id, data := range fields {
		r, err := unmarshalReport([]byte(data))
		if err != nil {
			return nil, storageErr("getAll", id, err)
		}
		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Timestamp != reports[j].Timestamp {
			return reports[i].Timestamp < reports[j].Timestamp
		}
		return reports[i].ID < reports[j].ID
	})
	return reports, nil
}

func (s *Redis) Put(ctx context.Context, r report.PatientReport) error {
	data, err := marshalReport(r)
	if err != nil {
		return storageErr("put", r.ID, err)
	}
	if err := s.client.HSet(ctx, s.key, r.ID, data).Err(); err != nil {
		return storageErr("put", r.ID, err)
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.key, id).Err(); err != nil {
		return storageErr("delete", id, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Redis) Close() error {
	return s.client.Close()
}
