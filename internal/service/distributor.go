package service

import (
	"log"
	"time"

	"edulearn/internal/model"

	"github.com/google/uuid"
)

// pushContentLocked is the content distributor: it validates a push against
// the session state and the payload shape, activates the new item, rebinds
// the aggregator, and broadcasts it to every connected student. Failures
// leave session state untouched. Caller holds c.mu.
func (c *Coordinator) pushContentLocked(teacherID string, ct model.ContentType, payload string, options []string) (*model.ContentItem, error) {
	if teacherID != c.session.TeacherID {
		return nil, ErrForbidden
	}
	if c.session.State != model.SessionLive {
		return nil, ErrSessionNotLive
	}
	if err := validateContent(ct, payload, options); err != nil {
		return nil, err
	}

	item := &model.ContentItem{
		ID:       uuid.New().String(),
		Type:     ct,
		Payload:  payload,
		Options:  append([]string(nil), options...),
		PushedAt: time.Now(),
	}

	c.session.ActiveContentItem = item
	c.history = append(c.history, item)
	c.aggregator.Reset(item)

	c.broadcaster.ToStudents(c.session.ID, pushMessageType(ct), item)
	log.Printf("session %s: pushed %s %s", c.session.ID, ct, item.ID)
	return item, nil
}

func validateContent(ct model.ContentType, payload string, options []string) error {
	for _, opt := range options {
		if opt == "" {
			return ErrInvalidPayload
		}
	}
	switch ct {
	case model.ContentQuiz:
		if len(options) == 0 {
			return ErrInvalidPayload
		}
	case model.ContentPoll:
		if len(options) < 2 {
			return ErrInvalidPayload
		}
	case model.ContentMaterial:
		if payload == "" {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload
	}
	return nil
}

func contentTypeFor(mt model.MessageType) model.ContentType {
	switch mt {
	case model.MsgPushQuiz:
		return model.ContentQuiz
	case model.MsgPushPoll:
		return model.ContentPoll
	default:
		return model.ContentMaterial
	}
}

func pushMessageType(ct model.ContentType) model.MessageType {
	switch ct {
	case model.ContentQuiz:
		return model.MsgPushQuiz
	case model.ContentPoll:
		return model.MsgPushPoll
	default:
		return model.MsgPushMaterial
	}
}
