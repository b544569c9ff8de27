// Package verification runs authenticity checks on health records through a
// pluggable provider and records every attempt in an append-only log.
package verification

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

// OutcomeDetails are the individual checks a provider performs
type OutcomeDetails struct {
	DocumentIntegrity   bool `json:"documentIntegrity"`
	MedicalTerminology  bool `json:"medicalTerminology"`
	ProviderCredentials bool `json:"providerCredentials"`
	DataConsistency     bool `json:"dataConsistency"`
}

// Outcome is the result of one verification attempt
type Outcome struct {
	Verified       bool           `json:"verified"`
	Confidence     float64        `json:"confidence"`
	VerificationID string         `json:"verificationId"`
	Timestamp      time.Time      `json:"timestamp"`
	Details        OutcomeDetails `json:"details"`
}

// Provider checks the authenticity of a health record. Implementations may
// call external services; the mock provider simulates one.
type Provider interface {
	Name() string
	DisplayName() string
	Verify(ctx context.Context, record *types.HealthRecord, verificationType string) (*Outcome, error)
}

// MockProvider simulates an external verification service. Roughly 70% of
// attempts verify, with randomized confidence and per-check results.
type MockProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockProvider creates a mock provider with a time-based seed
func NewMockProvider() *MockProvider {
	return &MockProvider{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededMockProvider creates a mock provider with a fixed seed
func NewSeededMockProvider(seed int64) *MockProvider {
	return &MockProvider{rng: rand.New(rand.NewSource(seed))}
}

// Name identifies the simulated upstream service
func (p *MockProvider) Name() string {
	return "namaste_tm2"
}

// DisplayName is the human-readable form written to verification logs
func (p *MockProvider) DisplayName() string {
	return "Namaste TM2 System"
}

// Verify simulates one verification attempt
func (p *MockProvider) Verify(ctx context.Context, record *types.HealthRecord, verificationType string) (*Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	return &Outcome{
		Verified:       p.rng.Float64() > 0.3,
		Confidence:     p.rng.Float64() * 100,
		VerificationID: fmt.Sprintf("TM2_%d", now.UnixMilli()),
		Timestamp:      now,
		Details: OutcomeDetails{
			DocumentIntegrity:   p.rng.Float64() > 0.2,
			MedicalTerminology:  p.rng.Float64() > 0.1,
			ProviderCredentials: p.rng.Float64() > 0.15,
			DataConsistency:     p.rng.Float64() > 0.25,
		},
	}, nil
}
