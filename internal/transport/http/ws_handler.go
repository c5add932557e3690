package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"contest-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// Hijacked connections keep the server's deadlines, so the socket sets its own.
const writeWait = 10 * time.Second

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type savedPayload struct {
	QuestionID string `json:"questionId"`
}

type submittedPayload struct {
	Score         int  `json:"score"`
	MaxScore      int  `json:"maxScore"`
	AutoSubmitted bool `json:"autoSubmitted"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func submittedMessage(res domain.Result) outboundMessage[any] {
	return outboundMessage[any]{Type: "submitted", Payload: submittedPayload{
		Score:         res.Score,
		MaxScore:      res.MaxScore,
		AutoSubmitted: res.AutoSubmitted,
	}}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: messageFor(err)}}
}

// ServeTimer pushes the remaining seconds to the quiz page and keeps answers
// in sync. At zero a single "timeup" message asks the page to post its form.
// If nothing arrives within the grace window the held answers are
// auto-submitted, a "submitted" message is sent and the socket is closed.
func (s *Server) ServeTimer(w http.ResponseWriter, r *http.Request) {
	id := studentID(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Time{})

	ctx := r.Context()
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	// Only the writer touches the connection for data frames.
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if msg.Type == "submitted" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submitted"),
					time.Now().Add(time.Second))
				_ = conn.Close()
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(s.opts.TickInterval)
		defer ticker.Stop()
		timeUp := false
		for {
			if done := s.pushTick(ctx, id, push, &timeUp); done {
				return
			}
			select {
			case <-ticker.C:
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			_, err := s.students.SaveAnswers(ctx, id, map[string]string{payload.QuestionID: payload.Answer})
			switch {
			case err == nil:
				push(outboundMessage[any]{Type: "saved", Payload: savedPayload{QuestionID: payload.QuestionID}})
			case errors.Is(err, domain.ErrAlreadySubmitted):
				if res, rerr := s.students.ResultFor(ctx, id); rerr == nil {
					push(submittedMessage(res))
				}
			default:
				push(errorMessage(err))
			}
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

// pushTick sends one countdown update and reports whether the ticker should stop.
// The first zero is sent as "timeup"; later zeros are plain ticks.
func (s *Server) pushTick(ctx context.Context, id string, push func(outboundMessage[any]) bool, timeUp *bool) bool {
	remaining, res, err := s.students.Tick(ctx, id)
	switch {
	case err != nil:
		push(errorMessage(err))
		return errors.Is(err, domain.ErrSessionNotFound)
	case res != nil:
		push(submittedMessage(*res))
		return true
	case remaining == 0 && !*timeUp:
		*timeUp = true
		return !push(outboundMessage[any]{Type: "timeup", Payload: tickPayload{Remaining: 0}})
	default:
		return !push(outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: remaining}})
	}
}
