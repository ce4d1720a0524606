package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	// MaxAnswerLogBytes bounds the encoded answers of one answer log.
	MaxAnswerLogBytes = 1 << 20
	// DefaultRuleStr identifies the default rule of a handler in answer logs.
	DefaultRuleStr = "Default"
)

var errAnswerLogTooLarge = errors.New("answer log too large")

// AnswerCount is an answer together with the number of times it was given.
type AnswerCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// StatsService aggregates the answers readers submit to each rule. Writes
// are best effort: failures are logged and never reach the caller.
type StatsService struct {
	store store.AnswerLogStore
}

func NewStatsService(store store.AnswerLogStore) *StatsService {
	return &StatsService{store: store}
}

func answerLogID(id, stateName, handlerName, ruleStr string) string {
	return strings.Join([]string{id, stateName, handlerName, ruleStr}, ".")
}

func (s *StatsService) answerLog(ctx context.Context, id, stateName, handlerName, ruleStr string) (*model.AnswerLog, error) {
	log, err := s.store.GetAnswerLog(ctx, answerLogID(id, stateName, handlerName, ruleStr))
	if errors.Is(err, store.ErrNotFound) {
		return &model.AnswerLog{
			ID:            answerLogID(id, stateName, handlerName, ruleStr),
			ExplorationID: id,
			StateName:     stateName,
			HandlerName:   handlerName,
			RuleStr:       ruleStr,
			Answers:       datatypes.NewJSONType(map[string]int{}),
		}, nil
	}
	return log, err
}

func (s *StatsService) save(ctx context.Context, log *model.AnswerLog) error {
	data, err := json.Marshal(log.Answers.Data())
	if err != nil {
		return err
	}
	if len(data) > MaxAnswerLogBytes {
		return fmt.Errorf("%w: %d bytes", errAnswerLogTooLarge, len(data))
	}
	return s.store.SaveAnswerLog(ctx, log)
}

// RecordAnswer counts one submitted answer against the rule it matched.
func (s *StatsService) RecordAnswer(ctx context.Context, id, stateName, handlerName, ruleStr, answer string) {
	log, err := s.answerLog(ctx, id, stateName, handlerName, ruleStr)
	if err != nil {
		logrus.WithError(err).WithField("exploration", id).Error("failed to read answer log")
		return
	}

	answers := log.Answers.Data()
	if answers == nil {
		answers = map[string]int{}
	}
	answers[answer]++
	log.Answers = datatypes.NewJSONType(answers)

	if err := s.save(ctx, log); err != nil {
		logrus.WithError(err).WithField("exploration", id).Error("failed to record answer")
	}
}

// ResolveAnswers removes answers from the log of a rule. Unknown answers are
// logged and skipped.
func (s *StatsService) ResolveAnswers(ctx context.Context, id, stateName, handlerName, ruleStr string, resolved []string) {
	log, err := s.answerLog(ctx, id, stateName, handlerName, ruleStr)
	if err != nil {
		logrus.WithError(err).WithField("exploration", id).Error("failed to read answer log")
		return
	}

	answers := log.Answers.Data()
	for _, answer := range resolved {
		if _, ok := answers[answer]; !ok {
			logrus.Errorf("answer %s not found in answer log for rule %s of exploration %s, state %s, handler %s", answer, ruleStr, id, stateName, handlerName)
			continue
		}
		delete(answers, answer)
	}
	log.Answers = datatypes.NewJSONType(answers)

	if err := s.save(ctx, log); err != nil {
		logrus.WithError(err).WithField("exploration", id).Error("failed to resolve answers")
	}
}

// TopUnresolvedAnswers returns the most frequent answers that only matched
// the default rule of a state, most frequent first.
func (s *StatsService) TopUnresolvedAnswers(ctx context.Context, id, stateName string, limit int) ([]AnswerCount, error) {
	logs, err := s.store.ListAnswerLogs(ctx, id, stateName)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, log := range logs {
		if log.RuleStr != DefaultRuleStr {
			continue
		}
		for answer, count := range log.Answers.Data() {
			counts[answer] += count
		}
	}

	out := make([]AnswerCount, 0, len(counts))
	for answer, count := range counts {
		out = append(out, AnswerCount{Value: answer, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}
