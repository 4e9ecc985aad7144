package session

import (
	"context"
	"fmt"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/classify"
	"github.com/xmidt-org/talaria/configurator/translate"
)

// HandleMessage classifies an inbound payload and applies it: log entries are
// appended, status snapshots replace the current one, remote scripts and
// unrecognized payloads are dropped. Dropped malformed payloads return an
// error wrapping ErrMalformedMessage; state is untouched in that case.
func (s *Session) HandleMessage(payload any) (classify.Kind, error) {
	verdict := classify.Classify(payload, s.validate)
	s.metrics.RecordMessage(verdict.Kind.String())

	switch verdict.Kind {
	case classify.RemoteScript:
		s.log.Info().Interface("script", payload).Msg("received remote script; nothing handles it here")
		return verdict.Kind, nil

	case classify.LogEntry:
		entry, err := classify.DecodeLog(verdict.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping log message")
			return verdict.Kind, err
		}
		s.mu.Lock()
		s.status.AppendLog(entry)
		n := s.status.LogCount()
		s.mu.Unlock()
		s.metrics.SetLogEntries(n)
		s.publish(configurator.EventLogAppended, entry)
		return verdict.Kind, nil

	case classify.StatusSnapshot:
		snap, err := classify.DecodeStatus(verdict.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping status message")
			return verdict.Kind, err
		}
		s.mu.Lock()
		s.status.ReplaceSnapshot(snap)
		s.mu.Unlock()
		s.publish(configurator.EventStatusChanged, nil)
		return verdict.Kind, nil

	default:
		s.log.Error().Msg("got unhandled message")
		return verdict.Kind, fmt.Errorf("%w: unrecognized payload", configurator.ErrMalformedMessage)
	}
}

// HandleFrame unwraps a socket frame and hands its payload to HandleMessage.
func (s *Session) HandleFrame(f configurator.Frame) (classify.Kind, error) {
	frame, err := translate.DecodeFrame(f.Binary, f.Data)
	if err != nil {
		s.metrics.RecordMessage(classify.Unrecognized.String())
		s.log.Warn().Err(err).Bool("binary", f.Binary).Msg("dropping undecodable frame")
		return classify.Unrecognized, fmt.Errorf("%w: %v", configurator.ErrMalformedMessage, err)
	}
	payload, err := classify.ParsePayload(frame.Payload)
	if err != nil {
		s.metrics.RecordMessage(classify.Unrecognized.String())
		s.log.Warn().Err(err).Str("source", frame.Source).Msg("dropping non-json payload")
		return classify.Unrecognized, err
	}
	return s.HandleMessage(payload)
}

// Pump applies socket events until ctx is done or the subscription closes.
// Connected and disconnected events drive the lifecycle; message events carry
// a configurator.Frame.
func (s *Session) Pump(ctx context.Context, sub configurator.EventSubscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub.C():
			if !ok {
				return nil
			}
			s.apply(evt)
		}
	}
}

func (s *Session) apply(evt configurator.Event) {
	switch evt.Kind {
	case configurator.EventConnected:
		_ = s.SetConnectionState(configurator.Connected)
	case configurator.EventDisconnected:
		_ = s.SetConnectionState(configurator.Disconnected)
	case configurator.EventMessage:
		f, ok := evt.Payload.(configurator.Frame)
		if !ok {
			s.log.Warn().Str("source", evt.Source).Msg("message event without frame")
			return
		}
		_, _ = s.HandleFrame(f)
	}
}
