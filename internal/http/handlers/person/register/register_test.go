package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

// Мок сервиса с методом Register
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, req models.RegisterPersonRequest) (*models.Person, bool, error) {
	args := m.Called(ctx, req)
	var p *models.Person
	if args.Get(0) != nil {
		p = args.Get(0).(*models.Person)
	}
	return p, args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	serviceMock := new(ServiceMock)
	logger := newNoopLogger()

	handler := New(logger, serviceMock)

	person := &models.Person{
		ID:       "3d0b9c6a-2d4c-4b19-8d7e-1f2a3b4c5d6e",
		FullName: "Sara Ali",
		Email:    "sara@example.com",
		Phone:    "971501112222",
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockPerson     *models.Person
		mockCreated    bool
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name: "valid registration",
			requestBody: models.RegisterPersonRequest{
				FullName: "Sara Ali",
				Email:    "sara@example.com",
				Phone:    "971501112222",
			},
			mockPerson:     person,
			mockCreated:    true,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name: "existing person returned without creation",
			requestBody: models.RegisterPersonRequest{
				FullName: "Sara Ali",
				Email:    "SARA@example.com",
				Phone:    "+971 50 111 2222",
			},
			mockPerson:     person,
			mockCreated:    false,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - missing phone",
			requestBody: models.RegisterPersonRequest{
				FullName: "Sara Ali",
				Email:    "sara@example.com",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Phone is a required field",
			wantStatus:     "Error",
		},
		{
			name: "email taken by another person",
			requestBody: models.RegisterPersonRequest{
				FullName: "Omar Nasser",
				Email:    "sara@example.com",
				Phone:    "971509998877",
			},
			mockErr:        identity.ErrEmailTaken,
			wantStatusCode: http.StatusConflict,
			wantError:      "email belongs to another person",
			wantStatus:     "Error",
		},
		{
			name: "identity conflict",
			requestBody: models.RegisterPersonRequest{
				FullName: "Omar Nasser",
				Email:    "sara@example.com",
				Phone:    "971501112222",
			},
			mockErr:        identity.ErrIdentityConflict,
			wantStatusCode: http.StatusConflict,
			wantError:      "email and phone belong to different persons",
			wantStatus:     "Error",
		},
		{
			name: "service error",
			requestBody: models.RegisterPersonRequest{
				FullName: "Sara Ali",
				Email:    "sara@example.com",
				Phone:    "971501112222",
			},
			mockErr:        errors.New("storage error"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not register person",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock.ExpectedCalls = nil
			serviceMock.Calls = nil

			if tt.mockPerson != nil || tt.mockErr != nil {
				serviceMock.On("Register", mock.Anything, mock.Anything).
					Return(tt.mockPerson, tt.mockCreated, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/persons", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, tt.mockCreated, data["created"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
