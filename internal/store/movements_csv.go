package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partita-dev/partita/internal/model"
)

// MovementsHeader is the CSV header for movements.csv.
const MovementsHeader = "id,batch_id,timestamp,account_code,side,amount,document_ref,reversal_of,description"

const (
	numMovementFields = 9
	colID             = 0
	colBatch          = 1
	colTimestamp      = 2
	colAccount        = 3
	colSide           = 4
	colAmount         = 5
	colDocRef         = 6
	colReversalOf     = 7
	colMoveDesc       = 8
)

// ReadMovements reads all movements from a movements.csv reader.
func ReadMovements(r io.Reader) ([]model.Movement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numMovementFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading movements CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var moves []model.Movement
	for i, rec := range records[1:] {
		m, err := UnmarshalMovement(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// WriteMovements writes movements including the header.
func WriteMovements(w io.Writer, moves []model.Movement) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(MovementsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, m := range moves {
		if err := cw.Write(MarshalMovement(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendMovementRows writes movements without a header.
func AppendMovementRows(w io.Writer, moves []model.Movement) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, m := range moves {
		if err := cw.Write(MarshalMovement(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalMovement converts a Movement to a CSV row. Amounts are written
// exactly, without rounding.
func MarshalMovement(m model.Movement) []string {
	row := make([]string, numMovementFields)
	row[colID] = strconv.FormatInt(m.ID, 10)
	row[colBatch] = strconv.FormatInt(m.BatchID, 10)
	row[colTimestamp] = m.Timestamp.Format(time.RFC3339Nano)
	row[colAccount] = m.AccountCode
	row[colSide] = string(m.Side)
	row[colAmount] = m.Amount.String()
	if m.DocumentRef != nil {
		row[colDocRef] = m.DocumentRef.String()
	}
	if m.ReversalOf != 0 {
		row[colReversalOf] = strconv.FormatInt(m.ReversalOf, 10)
	}
	row[colMoveDesc] = m.Description
	return row
}

// UnmarshalMovement converts a CSV row to a Movement.
func UnmarshalMovement(record []string) (model.Movement, error) {
	if len(record) != numMovementFields {
		return model.Movement{}, fmt.Errorf("expected %d fields, got %d", numMovementFields, len(record))
	}

	movID, err := strconv.ParseInt(record[colID], 10, 64)
	if err != nil {
		return model.Movement{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
	}

	batchID, err := strconv.ParseInt(record[colBatch], 10, 64)
	if err != nil {
		return model.Movement{}, fmt.Errorf("parsing batch_id %q: %w", record[colBatch], err)
	}

	ts, err := time.Parse(time.RFC3339Nano, record[colTimestamp])
	if err != nil {
		return model.Movement{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	side, err := model.ParseSide(record[colSide])
	if err != nil {
		return model.Movement{}, err
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Movement{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var docRef *uuid.UUID
	if record[colDocRef] != "" {
		ref, err := uuid.Parse(record[colDocRef])
		if err != nil {
			return model.Movement{}, fmt.Errorf("parsing document_ref %q: %w", record[colDocRef], err)
		}
		docRef = &ref
	}

	var reversalOf int64
	if record[colReversalOf] != "" {
		reversalOf, err = strconv.ParseInt(record[colReversalOf], 10, 64)
		if err != nil {
			return model.Movement{}, fmt.Errorf("parsing reversal_of %q: %w", record[colReversalOf], err)
		}
	}

	return model.Movement{
		ID:          movID,
		BatchID:     batchID,
		AccountCode: record[colAccount],
		Amount:      amount,
		Side:        side,
		Timestamp:   ts,
		DocumentRef: docRef,
		ReversalOf:  reversalOf,
		Description: record[colMoveDesc],
	}, nil
}
