package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite/gen"
)

type usageLogsRepo struct {
	q *gen.Queries
}

func (r *usageLogsRepo) CreateUsageLog(ctx context.Context, l domain.UsageLog) error {
	err := r.q.CreateRequestTokenLog(ctx, gen.CreateRequestTokenLogParams{
		ID:         l.ID,
		TokenID:    l.TokenID,
		UserID:     mapStringNull(l.UserID),
		ClientIp:   mapStringNull(l.ClientIP),
		UserAgent:  l.UserAgent,
		StatusCode: int64(l.StatusCode),
		Timestamp:  toMicros(l.Timestamp),
	})
	if err != nil {
		return mapAlreadyExists(err)
	}

	if l.Error == nil {
		return nil
	}

	return r.q.CreateRequestTokenError(ctx, gen.CreateRequestTokenErrorParams{
		LogID:          l.ID,
		Classification: l.Error.Classification,
		Message:        l.Error.Message,
	})
}

func (r *usageLogsRepo) ListUsageLogs(ctx context.Context, tokenID string) ([]domain.UsageLog, error) {
	rows, err := r.q.ListRequestTokenLogs(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UsageLog, 0, len(rows))
	for _, row := range rows {
		l := domain.UsageLog{
			ID:         row.ID,
			TokenID:    row.TokenID,
			UserID:     mapNullString(row.UserID),
			ClientIP:   mapNullString(row.ClientIp),
			UserAgent:  row.UserAgent,
			StatusCode: int(row.StatusCode),
			Timestamp:  fromMicros(row.Timestamp),
		}
		if row.Classification.Valid {
			l.Error = &domain.ErrorLog{
				LogID:          row.ID,
				Classification: row.Classification.String,
				Message:        mapNullString(row.Message),
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *usageLogsRepo) CountSuccessfulUses(ctx context.Context, tokenID string) (int, error) {
	n, err := r.q.CountSuccessfulRequestTokenUses(ctx, tokenID)
	return int(n), err
}

func (r *usageLogsRepo) DeleteUsageLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	return r.q.DeleteRequestTokenLogsBefore(ctx, toMicros(before))
}
