package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/labels"
)

// maxIntersectPages bounds the conversation listing walk used for
// multi-label intersection counts.
const maxIntersectPages = 20

// API is the slice of the platform client the service needs.
type API interface {
	labels.API
	ReportSum(ctx context.Context, acc *allway.Account, metric, typ string, id int64, since, until time.Time) (int64, error)
	ListConversationsCreated(ctx context.Context, acc *allway.Account, page int, since, until time.Time) ([]allway.Conversation, error)
}

// Service computes aggregate statistics for an account.
type Service struct {
	api    API
	labels *labels.Cache
}

// NewService creates a stats service sharing the given label cache.
func NewService(api API, labelCache *labels.Cache) *Service {
	if labelCache == nil {
		labelCache = labels.NewCache(0)
	}
	return &Service{api: api, labels: labelCache}
}

// ConversationCount counts conversations created in the period. With no
// label names the account-wide report answers; with one label the label
// report answers; with several labels only conversations carrying all of
// them count, which the reports endpoint cannot express, so the listing is
// walked instead.
func (s *Service) ConversationCount(ctx context.Context, acc *allway.Account, period Period, labelNames []string) (int64, error) {
	since, until, err := PeriodRange(period, time.Now())
	if err != nil {
		return 0, err
	}

	switch len(labelNames) {
	case 0:
		return s.api.ReportSum(ctx, acc, allway.MetricConversationsCount, allway.ReportTypeAccount, 0, since, until)
	case 1:
		ids, err := s.labels.IDsByNames(ctx, s.api, acc, labelNames)
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			return 0, fmt.Errorf("unknown label %q", labelNames[0])
		}
		return s.api.ReportSum(ctx, acc, allway.MetricConversationsCount, allway.ReportTypeLabel, int64(ids[0]), since, until)
	default:
		return s.intersectCount(ctx, acc, labelNames, since, until)
	}
}

// MessageCount counts messages exchanged in the period, incoming plus
// outgoing.
func (s *Service) MessageCount(ctx context.Context, acc *allway.Account, period Period) (int64, error) {
	since, until, err := PeriodRange(period, time.Now())
	if err != nil {
		return 0, err
	}

	in, err := s.api.ReportSum(ctx, acc, allway.MetricIncomingMessages, allway.ReportTypeAccount, 0, since, until)
	if err != nil {
		return 0, err
	}
	out, err := s.api.ReportSum(ctx, acc, allway.MetricOutgoingMessages, allway.ReportTypeAccount, 0, since, until)
	if err != nil {
		return 0, err
	}
	return in + out, nil
}

func (s *Service) intersectCount(ctx context.Context, acc *allway.Account, labelNames []string, since, until time.Time) (int64, error) {
	ids, err := s.labels.IDsByNames(ctx, s.api, acc, labelNames)
	if err != nil {
		return 0, err
	}
	if len(ids) < len(labelNames) {
		return 0, fmt.Errorf("unknown label among %v", labelNames)
	}

	wanted := make(map[allway.LabelID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var total int64
	for page := 1; page <= maxIntersectPages; page++ {
		conversations, err := s.api.ListConversationsCreated(ctx, acc, page, since, until)
		if err != nil {
			return 0, err
		}
		if len(conversations) == 0 {
			break
		}
		for _, conv := range conversations {
			if carriesAll(conv, wanted) {
				total++
			}
		}
	}
	return total, nil
}

func carriesAll(conv allway.Conversation, wanted map[allway.LabelID]struct{}) bool {
	have := make(map[allway.LabelID]struct{})
	for _, id := range conv.LabelIDs() {
		have[id] = struct{}{}
	}
	for id := range wanted {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}
