package api

import (
	"context"
	"errors"
	"fmt"
)

// RejectedError is returned when the server answered with success=false
type RejectedError struct {
	Code *int
	Msg  string
}

func (e *RejectedError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("request rejected (code %d): %s", *e.Code, e.Msg)
	}
	return fmt.Sprintf("request rejected: %s", e.Msg)
}

// IsRejected reports whether err is or wraps a RejectedError
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

func rejected(resp *Response) error {
	return &RejectedError{Code: resp.Code, Msg: resp.Msg}
}

// Service exposes the endpoint roles as typed calls over a Transport
type Service struct {
	transport Transport
	endpoints Endpoints
}

// NewService creates a service over the given transport
func NewService(transport Transport, endpoints Endpoints) *Service {
	return &Service{transport: transport, endpoints: endpoints}
}

// Endpoints returns the resolved endpoint set
func (s *Service) Endpoints() Endpoints {
	return s.endpoints
}

// Activate calls the activation endpoint and returns the raw envelope;
// its outcome rules depend on code and message as well as success.
func (s *Service) Activate(ctx context.Context, id Identity) (*Response, error) {
	return s.transport.Send(ctx, s.endpoints.Activate, ActivatePayload{}, id, MethodPost)
}

// Session fetches the account profile
func (s *Service) Session(ctx context.Context, id Identity) (Profile, *Response, error) {
	resp, err := s.transport.Send(ctx, s.endpoints.Session, nil, id, MethodPost)
	if err != nil {
		return Profile{}, nil, err
	}
	if resp == nil {
		return Profile{}, nil, fmt.Errorf("%w: empty session response", ErrMalformedResponse)
	}
	if !resp.Success {
		return Profile{}, resp, rejected(resp)
	}
	profile, err := DecodeData[Profile](resp)
	if err != nil {
		return Profile{}, resp, fmt.Errorf("session: %w", err)
	}
	return profile, resp, nil
}

// EarnInfo fetches the season earnings summary
func (s *Service) EarnInfo(ctx context.Context, id Identity) (EarnInfo, error) {
	resp, err := s.transport.Send(ctx, s.endpoints.EarnInfo, nil, id, MethodGet)
	if err != nil {
		return EarnInfo{}, err
	}
	if resp == nil {
		return EarnInfo{}, fmt.Errorf("%w: empty earn info response", ErrMalformedResponse)
	}
	if !resp.Success {
		return EarnInfo{}, rejected(resp)
	}
	info, err := DecodeData[EarnInfo](resp)
	if err != nil {
		return EarnInfo{}, fmt.Errorf("earn info: %w", err)
	}
	return info, nil
}

// Missions fetches the reward mission list. An absent list is empty.
func (s *Service) Missions(ctx context.Context, id Identity) ([]Mission, error) {
	resp, err := s.transport.Send(ctx, s.endpoints.Mission, nil, id, MethodGet)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty mission response", ErrMalformedResponse)
	}
	if !resp.Success {
		return nil, rejected(resp)
	}
	if !resp.HasData() {
		return nil, nil
	}
	missions, err := DecodeData[[]Mission](resp)
	if err != nil {
		return nil, fmt.Errorf("missions: %w", err)
	}
	return missions, nil
}

// CompleteMission claims a reward. A success response whose data cannot be
// read still counts as claimed, with zero earned points.
func (s *Service) CompleteMission(ctx context.Context, id Identity, missionID string) (ClaimResult, error) {
	resp, err := s.transport.Send(ctx, s.endpoints.CompleteMission, ClaimPayload{MissionID: missionID}, id, MethodPost)
	if err != nil {
		return ClaimResult{}, err
	}
	if resp == nil {
		return ClaimResult{}, fmt.Errorf("%w: empty claim response", ErrMalformedResponse)
	}
	if !resp.Success {
		return ClaimResult{}, rejected(resp)
	}
	result, _ := DecodeData[ClaimResult](resp)
	return result, nil
}

// Ping sends one keep-alive to url and returns the raw envelope
func (s *Service) Ping(ctx context.Context, url string, id Identity, payload PingPayload) (*Response, error) {
	return s.transport.Send(ctx, url, payload, id, MethodPost)
}
