package cli

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

// mockAccountService implements driving.AccountService for testing.
type mockAccountService struct {
	accounts     map[string]*domain.Account
	created      *domain.Account
	createErr    error
	authorizeErr error
	refreshErr   error
	removeErr    error
	authorized   []string
	pasteSeen    bool
}

func (m *mockAccountService) Create(_ context.Context, provider domain.ProviderType) (*domain.Account, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	account := &domain.Account{ID: "acc-new", Provider: provider}
	m.created = account
	if m.accounts == nil {
		m.accounts = map[string]*domain.Account{}
	}
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockAccountService) Authorize(_ context.Context, id string, _ *domain.Cancellation) (*domain.Account, error) {
	m.authorized = append(m.authorized, id)
	m.pasteSeen = pasteMode
	if m.authorizeErr != nil {
		return nil, m.authorizeErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	account.Email = "user@example.test"
	return account, nil
}

func (m *mockAccountService) Get(_ context.Context, id string) (*domain.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (m *mockAccountService) List(_ context.Context) ([]domain.Account, error) {
	ids := make([]string, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.accounts[id])
	}
	return out, nil
}

func (m *mockAccountService) Refresh(ctx context.Context, id string) (*domain.Account, error) {
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.Get(ctx, id)
}

func (m *mockAccountService) Remove(_ context.Context, id string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.accounts, id)
	return nil
}

// mockTargetService implements driving.TargetService for testing.
type mockTargetService struct {
	targets []domain.Target
	added   *domain.Target
	err     error
}

func (m *mockTargetService) Add(_ context.Context, target domain.Target) (*domain.Target, error) {
	if m.err != nil {
		return nil, m.err
	}
	target.ID = "tgt-new"
	target.Provider = domain.ProviderDropbox
	m.added = &target
	return &target, nil
}

func (m *mockTargetService) Get(_ context.Context, id string) (*domain.Target, error) {
	for i := range m.targets {
		if m.targets[i].ID == id {
			return &m.targets[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTargetService) List(_ context.Context) ([]domain.Target, error) {
	return m.targets, m.err
}

func (m *mockTargetService) Remove(_ context.Context, _ string) error {
	return m.err
}

// mockExportService implements driving.ExportService for testing.
type mockExportService struct {
	record   *domain.ExportRecord
	err      error
	updates  []domain.ProgressUpdate
	requests []driving.ExportRequest
	cancels  []*domain.Cancellation
	history  map[string][]domain.ExportRecord
	recent   []domain.ExportRecord
	limit    int
	// onExport runs inside Export before it returns.
	onExport func(cancel *domain.Cancellation)
}

func (m *mockExportService) Export(
	_ context.Context,
	req driving.ExportRequest,
	cancel *domain.Cancellation,
	progress driven.ProgressReporter,
) (*domain.ExportRecord, error) {
	m.requests = append(m.requests, req)
	m.cancels = append(m.cancels, cancel)
	if progress != nil {
		for _, u := range m.updates {
			progress.ReportProgress(u)
		}
	}
	if m.onExport != nil {
		m.onExport(cancel)
	}
	return m.record, m.err
}

func (m *mockExportService) History(_ context.Context, captureID string) ([]domain.ExportRecord, error) {
	return m.history[captureID], m.err
}

func (m *mockExportService) Recent(_ context.Context, limit int) ([]domain.ExportRecord, error) {
	m.limit = limit
	return m.recent, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings *domain.Settings
	values   map[string]string
	keys     []string
	setErr   error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.settings != nil {
		return m.settings, nil
	}
	return &domain.Settings{}, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Value(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettingsService) Keys() []string {
	return m.keys
}

// setServices swaps the command services for the duration of a test.
func setServices(t *testing.T, s Services) {
	t.Helper()
	oldAccount, oldTarget, oldExport, oldSettings := accountService, targetService, exportService, settingsService
	SetServices(s)
	t.Cleanup(func() {
		accountService, targetService, exportService, settingsService = oldAccount, oldTarget, oldExport, oldSettings
	})
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default and clears its changed
// state so required-flag checks see a fresh command line.
func resetFlags() {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}
