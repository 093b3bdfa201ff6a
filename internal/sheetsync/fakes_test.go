package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// fakeSheet is an in-memory single-tab spreadsheet
type fakeSheet struct {
	grid        [][]string
	reads       int
	writes      int
	batchCalls  int
	lastBatch   []sheetrow.CellUpdate
	deleted     []int
	readErr     error
	writeErr    error
	batchErr    error
	metadataErr error
}

func newFakeSheet(rows ...[]string) *fakeSheet {
	s := &fakeSheet{}
	for _, r := range rows {
		s.grid = append(s.grid, append([]string(nil), r...))
	}
	return s
}

func (s *fakeSheet) Read(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([][]string, len(s.grid))
	for i, r := range s.grid {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *fakeSheet) Write(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.apply(rng, values)
}

func (s *fakeSheet) BatchUpdate(ctx context.Context, spreadsheetID string, updates []sheetrow.CellUpdate) error {
	s.batchCalls++
	s.lastBatch = updates
	if s.batchErr != nil {
		return s.batchErr
	}
	for _, u := range updates {
		if err := s.apply(u.Range, u.Values); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSheet) Metadata(ctx context.Context, spreadsheetID string) (*Metadata, error) {
	if s.metadataErr != nil {
		return nil, s.metadataErr
	}
	return &Metadata{Title: "Inspecciones", Sheets: []SheetInfo{{SheetID: 0, Title: "Asignaciones", RowCount: int64(len(s.grid)), ColumnCount: 26}}}, nil
}

func (s *fakeSheet) DeleteRow(ctx context.Context, spreadsheetID, sheetName string, row int) error {
	if row < 1 || row > len(s.grid) {
		return fmt.Errorf("row %d out of range", row)
	}
	s.deleted = append(s.deleted, row)
	s.grid = append(s.grid[:row-1], s.grid[row:]...)
	return nil
}

// cell returns the value at a 1-based row and column
func (s *fakeSheet) cell(row, col int) string {
	if row < 1 || row > len(s.grid) {
		return ""
	}
	r := s.grid[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

// apply writes values at the top-left cell of an A1 range such as 'Tab'!B3:C4
func (s *fakeSheet) apply(rng string, values [][]string) error {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	start := strings.SplitN(rng, ":", 2)[0]
	split := strings.IndexAny(start, "0123456789")
	if split <= 0 {
		return fmt.Errorf("bad range %q", rng)
	}
	col, err := sheetrow.ColumnToNumber(start[:split])
	if err != nil {
		return err
	}
	var row int
	if _, err := fmt.Sscanf(start[split:], "%d", &row); err != nil {
		return err
	}

	for i, vals := range values {
		r := row + i
		for len(s.grid) < r {
			s.grid = append(s.grid, []string{})
		}
		for j, v := range vals {
			c := col + j
			for len(s.grid[r-1]) < c {
				s.grid[r-1] = append(s.grid[r-1], "")
			}
			s.grid[r-1][c-1] = v
		}
	}
	return nil
}

// fakeRepo is an in-memory assignment store
type fakeRepo struct {
	assignments []models.Assignment
	users       map[string]*models.UserAuth
	commodities map[string]string
	nextID      uint
	creates     int
	failLots    map[string]error
	listErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       map[string]*models.UserAuth{},
		commodities: map[string]string{"arandano": "BLUEBERRY", "blueberry": "BLUEBERRY"},
		nextID:      1,
		failLots:    map[string]error{},
	}
}

func (r *fakeRepo) add(a models.Assignment) models.Assignment {
	if a.ID == 0 {
		a.ID = r.nextID
	}
	if a.ID >= r.nextID {
		r.nextID = a.ID + 1
	}
	r.assignments = append(r.assignments, a)
	return a
}

func (r *fakeRepo) ListPending(ctx context.Context) ([]models.Assignment, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Assignment, 0)
	for _, a := range r.assignments {
		if a.Status == models.AssignmentPending {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) NaturalKeyIndex(ctx context.Context) (map[models.NaturalKey]uint, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	idx := make(map[models.NaturalKey]uint, len(r.assignments))
	for _, a := range r.assignments {
		key := models.NaturalKeyOf(a.Lot, a.Producer)
		if _, ok := idx[key]; !ok {
			idx[key] = a.ID
		}
	}
	return idx, nil
}

func (r *fakeRepo) FindInspectorByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	return r.users[strings.ToLower(email)], nil
}

func (r *fakeRepo) CreateImported(ctx context.Context, a *models.Assignment) error {
	r.creates++
	if err, ok := r.failLots[a.Lot]; ok {
		return err
	}
	a.ID = r.nextID
	r.nextID++
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *fakeRepo) MatchCommodity(ctx context.Context, label string) (string, bool, error) {
	code, ok := r.commodities[strings.ToLower(strings.TrimSpace(label))]
	return code, ok, nil
}

func (r *fakeRepo) CommodityCodes(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string)
	for _, id := range ids {
		for _, a := range r.assignments {
			if a.ID == id && a.CommodityCode != nil {
				out[id] = *a.CommodityCode
			}
		}
	}
	return out, nil
}

type staticConfig struct{ cfg config.SheetSyncConfig }

func (s staticConfig) Get() config.SheetSyncConfig { return s.cfg }

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Broadcast(event string, payload interface{}) {
	n.events = append(n.events, event)
}

var errBoom = errors.New("boom")
