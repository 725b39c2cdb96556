// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tomtom215/vigil/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EventRequest is the ingest payload for POST /api/v1/events.
type EventRequest struct {
	UserID               string         `json:"user_id" validate:"required,min=1,max=128"`
	DeviceID             string         `json:"device_id" validate:"omitempty,max=128"`
	AppName              string         `json:"app_name" validate:"required,min=1,max=256"`
	PermissionRequested  string         `json:"permission_requested" validate:"omitempty,max=64"`
	NetworkActivityLevel float64        `json:"network_activity_level" validate:"gte=0,lte=100"`
	BackgroundProcess    bool           `json:"background_process_flag"`
	AnomalyFlag          bool           `json:"anomaly_flag"`
	Attributes           map[string]any `json:"attributes" validate:"omitempty,max=32"`
	Timestamp            *time.Time     `json:"timestamp"`
}

// Validate checks field constraints and returns a client-facing message
// for the first violation.
func (r *EventRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %s constraint", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// ToEvent converts the request into a model event. Missing optional
// fields keep their zero values; the pipeline applies defaults.
func (r *EventRequest) ToEvent() *models.Event {
	e := &models.Event{
		ID:                   uuid.New(),
		UserID:               r.UserID,
		DeviceID:             r.DeviceID,
		AppName:              r.AppName,
		PermissionRequested:  r.PermissionRequested,
		NetworkActivityLevel: r.NetworkActivityLevel,
		BackgroundProcess:    r.BackgroundProcess,
		AnomalyFlag:          r.AnomalyFlag,
		Attributes:           r.Attributes,
	}
	if r.Timestamp != nil {
		e.Timestamp = r.Timestamp.UTC()
	}
	return e
}

// UserRequest is the provisioning payload for POST /api/v1/users.
type UserRequest struct {
	ID           string `json:"id" validate:"omitempty,min=1,max=128"`
	Name         string `json:"name" validate:"required,min=1,max=256"`
	Role         string `json:"role" validate:"omitempty,oneof=student admin"`
	ConsentGiven bool   `json:"consent_given"`
}

// Validate checks field constraints and returns a client-facing message
// for the first violation.
func (r *UserRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %s constraint", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// ToUser converts the request into a user record, generating an ID and
// defaulting the role when absent.
func (r *UserRequest) ToUser() *models.User {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	role := r.Role
	if role == "" {
		role = "student"
	}
	return &models.User{
		ID:           id,
		Name:         r.Name,
		Role:         role,
		ConsentGiven: r.ConsentGiven,
		CreatedAt:    time.Now().UTC(),
	}
}
