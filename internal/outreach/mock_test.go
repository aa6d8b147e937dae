package outreach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
	"github.com/sells-group/wa-outreach/internal/store"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, name, localPhone string, country model.CountryInfo, message string) error {
	args := m.Called(ctx, name, localPhone, country, message)
	return args.Error(0)
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Acquire(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Release() error {
	return m.Called().Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateOpener(ctx context.Context, lead model.Lead, prompt string) (string, error) {
	args := m.Called(ctx, lead, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Available() bool {
	return m.Called().Bool(0)
}

type fixture struct {
	sender  *mockSender
	ledger  *store.Ledger
	tracker *store.Tracker
	orch    *Orchestrator
}

// newFixture wires an orchestrator over JSON stores in a temp dir with no
// pacing delay. mutate may adjust the deps before construction.
func newFixture(t *testing.T, mutate func(d *Deps)) *fixture {
	t.Helper()
	dir := t.TempDir()

	contacts, err := store.OpenContacts(context.Background(), store.DriverJSON, dir, "")
	require.NoError(t, err)

	f := &fixture{
		sender:  &mockSender{},
		ledger:  store.NewLedger(contacts),
		tracker: store.NewTracker(store.OpenTracking(dir)),
	}
	d := Deps{
		Sender:    f.sender,
		Validator: phone.NewValidator(f.tracker),
		Ledger:    f.ledger,
		Tracker:   f.tracker,
		Pacer:     NewPacer(0, 0, 0),
	}
	if mutate != nil {
		mutate(&d)
	}
	f.orch = New(d)
	return f
}

func lead(name, p string) model.Lead {
	return model.Lead{Name: name, Phone: p, BusinessName: name + " Lda"}
}
