package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
)

// seedOverdueAsset adds an asset whose maintenance fell due long ago.
func seedOverdueAsset(t *testing.T, path string) {
	t.Helper()
	d, err := db.Open(path)
	require.NoError(t, err)
	defer closeDB(d)

	svc := equipment.NewService(d, duedate.Calendar{}, 25)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, equipment.CategoryInput{Name: "Audio"})
	require.NoError(t, err)
	_, err = svc.CreateAsset(ctx, equipment.AssetInput{
		Code:                    "MIX-01",
		Name:                    "Sound desk",
		CategoryID:              "1",
		PurchaseDate:            "2000-01-01",
		MaintenanceIntervalDays: "30",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), cat.ID)
}

func dbFlag(args []string) string {
	for i, a := range args {
		if a == "--db" {
			return args[i+1]
		}
	}
	return ""
}

func TestMigrate(t *testing.T) {
	args := localArgs(t, "migrate")
	out, err := executeCommand(args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Database ready")

	_, err = os.Stat(dbFlag(args))
	assert.NoError(t, err)
}

func TestUserAddAndList(t *testing.T) {
	args := localArgs(t)

	out, err := executeCommand(append([]string{"user", "add", "Pastor@Example.org", "--name", "Pastor Ann", "--role", "staff", "--password", "correct horse"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "pastor@example.org")
	assert.Contains(t, out, "Staff")

	out, err = executeCommand(append([]string{"user", "list"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "pastor@example.org")
	assert.Contains(t, out, "Pastor Ann")

	out, err = executeCommand(append([]string{"user", "list", "--format", "json"}, args...)...)
	require.NoError(t, err)
	var users []struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "staff", users[0].Role)
	assert.NotContains(t, out, "password")
}

func TestUserAddRejectsBadRole(t *testing.T) {
	_, err := executeCommand(localArgs(t, "user", "add", "a@example.org", "--role", "bishop")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestUserRemoveAndPasswd(t *testing.T) {
	args := localArgs(t)
	_, err := executeCommand(append([]string{"user", "add", "vol@example.org"}, args...)...)
	require.NoError(t, err)

	_, err = executeCommand(append([]string{"user", "passwd", "vol@example.org", "--password", "short"}, args...)...)
	assert.Error(t, err)

	out, err := executeCommand(append([]string{"user", "passwd", "vol@example.org", "--password", "long enough"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated")

	out, err = executeCommand(append([]string{"user", "remove", "vol@example.org"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	_, err = executeCommand(append([]string{"user", "remove", "vol@example.org"}, args...)...)
	assert.Error(t, err)
}

func TestAPIKeyLifecycle(t *testing.T) {
	args := localArgs(t)
	_, err := executeCommand(append([]string{"user", "add", "office@example.org", "--role", "staff"}, args...)...)
	require.NoError(t, err)

	out, err := executeCommand(append([]string{"apikey", "create", "reports", "--user", "office@example.org"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "dk_")
	assert.Contains(t, out, "not be shown again")

	out, err = executeCommand(append([]string{"apikey", "list"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "reports")
	assert.Contains(t, out, "office@example.org")
	assert.Contains(t, out, "never")

	out, err = executeCommand(append([]string{"apikey", "revoke", "1"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Revoked API key #1")

	_, err = executeCommand(append([]string{"apikey", "revoke", "1"}, args...)...)
	assert.Error(t, err)

	_, err = executeCommand(append([]string{"apikey", "revoke", "abc"}, args...)...)
	assert.Error(t, err)
}

func TestAPIKeyCreateUnknownUser(t *testing.T) {
	_, err := executeCommand(localArgs(t, "apikey", "create", "reports", "--user", "nobody@example.org")...)
	assert.Error(t, err)
}

func TestDueLocal(t *testing.T) {
	args := localArgs(t)
	seedOverdueAsset(t, dbFlag(args))

	out, err := executeCommand(append([]string{"due"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "MIX-01")
	assert.Contains(t, out, "Overdue")
	assert.Contains(t, out, "days late")

	out, err = executeCommand(append([]string{"due", "--days", "7", "--format", "json"}, args...)...)
	require.NoError(t, err)
	var due struct {
		Equipment []struct {
			Code              string `json:"code"`
			MaintenanceStatus string `json:"maintenance_status"`
		} `json:"equipment"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &due))
	require.Len(t, due.Equipment, 1)
	assert.Equal(t, "OVERDUE", due.Equipment[0].MaintenanceStatus)
}

func TestDueRejectsNegativeDays(t *testing.T) {
	_, err := executeCommand(localArgs(t, "due", "--days", "-1")...)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	args := localArgs(t)
	seedOverdueAsset(t, dbFlag(args))

	out, err := executeCommand(append([]string{"export", "equipment"}, args...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "code,name,category"), out)
	assert.Contains(t, out, "MIX-01")

	path := filepath.Join(t.TempDir(), "maintenance.csv")
	_, err = executeCommand(append([]string{"export", "maintenance", "--out", path}, args...)...)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")

	_, err = executeCommand(append([]string{"export", "payroll"}, args...)...)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, out, "desk dev")
}

func TestRemindNothingDue(t *testing.T) {
	args := localArgs(t, "remind")
	out, err := executeCommand(args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing due")
}

func TestRemindDryRun(t *testing.T) {
	args := localArgs(t)
	seedOverdueAsset(t, dbFlag(args))

	_, err := executeCommand(append([]string{"user", "add", "office@example.org", "--role", "staff"}, args...)...)
	require.NoError(t, err)
	_, err = executeCommand(append([]string{"user", "add", "usher@example.org", "--role", "volunteer"}, args...)...)
	require.NoError(t, err)

	out, err := executeCommand(append([]string{"remind", "--dry-run"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "To: office@example.org\n")
	assert.NotContains(t, out, "usher@example.org")
	assert.Contains(t, out, "Subject: Church desk: 1 maintenance, 0 follow-ups")
	assert.Contains(t, out, "1. MIX-01 Sound desk")
	assert.Contains(t, out, "/equipment/1")

	out, err = executeCommand(append([]string{"remind", "--dry-run", "--to", "a@example.org,b@example.org"}, args...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "To: a@example.org, b@example.org\n")
}

func TestRemindNeedsSMTP(t *testing.T) {
	args := localArgs(t)
	seedOverdueAsset(t, dbFlag(args))
	t.Setenv("DESK_SMTP_HOST", "")
	t.Setenv("DESK_SMTP_FROM", "")

	_, err := executeCommand(append([]string{"remind", "--to", "office@example.org"}, args...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP not configured")
}

func TestRemindNeedsRecipients(t *testing.T) {
	args := localArgs(t)
	seedOverdueAsset(t, dbFlag(args))

	_, err := executeCommand(append([]string{"remind", "--dry-run"}, args...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}
