package sheetsync

import (
	"strconv"
	"strings"

	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// Default positional columns of the assignments sheet (1-based)
const (
	ColProducer = iota + 1
	ColLot
	ColVariety
	ColCommodity
	ColInspectorEmail
	ColStatus
	ColAssignmentID

	columnCount = ColAssignmentID
)

// StatusPending is written into the status column for open assignments
const StatusPending = "Pendiente"

// Header is written when the sheet is completely empty
var Header = []string{"Productor", "Lote", "Variedad", "Especie", "Email Inspector", "Estado", "ID Asignacion"}

// Accepted header spellings per field, in priority order
var (
	producerAliases  = []string{"Productor", "Producer", "producer_name", "Nombre Productor"}
	lotAliases       = []string{"Lote", "Lot", "Lot Number", "Numero Lote", "Número Lote"}
	varietyAliases   = []string{"Variedad", "Variety"}
	commodityAliases = []string{"Especie", "Commodity", "Fruta", "Producto", "Commodity Code"}
	emailAliases     = []string{"Email Inspector", "Inspector Email", "InspectorEmail", "inspector_email", "Email", "Correo Inspector", "Inspector"}
	statusAliases    = []string{"Estado", "Status"}
	idAliases        = []string{"ID Asignacion", "ID Asignación", "AssignmentId", "Assignment ID", "assignment_id", "ID"}
)

// SheetRow is a record reduced to the fields the engine cares about
type SheetRow struct {
	RowNumber      int
	Producer       string
	Lot            string
	Variety        string
	Commodity      string
	InspectorEmail string
	Status         string
	AssignmentID   string
}

// FromRecord extracts a SheetRow from a parsed record using header aliases
func FromRecord(rec sheetrow.Record) SheetRow {
	return SheetRow{
		RowNumber:      rec.RowNumber,
		Producer:       rec.Get(producerAliases...),
		Lot:            rec.Get(lotAliases...),
		Variety:        rec.Get(varietyAliases...),
		Commodity:      rec.Get(commodityAliases...),
		InspectorEmail: strings.ToLower(rec.Get(emailAliases...)),
		Status:         rec.Get(statusAliases...),
		AssignmentID:   rec.Get(idAliases...),
	}
}

// Values renders the row positionally
func (r SheetRow) Values() []string {
	return []string{r.Producer, r.Lot, r.Variety, r.Commodity, r.InspectorEmail, r.Status, r.AssignmentID}
}

// writeBack locates the columns the engine writes into
type writeBack struct {
	sheet     string
	statusCol int
	idCol     int
}

func newWriteBack(sheet string, table sheetrow.Table) writeBack {
	wb := writeBack{
		sheet:     sheet,
		statusCol: table.ColumnIndex(statusAliases...),
		idCol:     table.ColumnIndex(idAliases...),
	}
	if wb.statusCol == 0 {
		wb.statusCol = ColStatus
	}
	if wb.idCol == 0 {
		wb.idCol = ColAssignmentID
	}
	return wb
}

func (wb writeBack) status(row int, value string) sheetrow.CellUpdate {
	return sheetrow.SetCell(wb.sheet, wb.statusCol, row, value)
}

func (wb writeBack) id(row int, id uint) sheetrow.CellUpdate {
	return sheetrow.SetCell(wb.sheet, wb.idCol, row, strconv.FormatUint(uint64(id), 10))
}

// readRange covers every column the sheet may use
func readRange(sheet string) string {
	return sheetrow.Qualify(sheet, "A:Z")
}
