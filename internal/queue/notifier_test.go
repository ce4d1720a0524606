package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("broker down")}
	ok := &recordingNotifier{}

	err := Multi{failing, LogNotifier{}, ok}.Notify(context.TODO(), Event{Kind: EventContentChange, ExplorationID: "exp-1", Version: 2})

	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, failing.events, 1)
	assert.Equal(t, []Event{{Kind: EventContentChange, ExplorationID: "exp-1", Version: 2}}, ok.events)
}
