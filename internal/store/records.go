package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zhang-zilu123/cost-ident/internal/model"
)

// StoredRecord 复核库里的一条费用记录
type StoredRecord struct {
	ID      int64  `json:"id"`
	BatchID int64  `json:"batchId"`
	SplitID string `json:"splitId"`
	Status  string `json:"status"`
	model.FeeRecord
}

// CreateBatch 新建一个识别批次并写入全部费用记录
// 每条记录分配唯一 split_id，初始状态为待提交
func (s *Store) CreateBatch(name string, records []model.FeeRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO batches (name, file_count) VALUES (?, ?)",
		name, len(records),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}
	batchID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fee_records
			(batch_id, split_id, contract, forwarder, fee_name, currency, amount, note, source_file, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		splitID := uuid.NewString()
		if _, err := stmt.Exec(
			batchID, splitID,
			r.Contract, r.Forwarder, r.FeeName, r.Currency, r.Amount, r.Note, r.SourceFile,
			string(model.RecordPending),
		); err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return batchID, nil
}

// ListBatchRecords 按批次列出记录，按主键升序
func (s *Store) ListBatchRecords(batchID int64) ([]StoredRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, batch_id, split_id, contract, forwarder, fee_name, currency, amount, note, source_file, status
		FROM fee_records WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListSubmittable 列出批次里待提交和上次提交失败的记录
func (s *Store) ListSubmittable(batchID int64) ([]StoredRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, batch_id, split_id, contract, forwarder, fee_name, currency, amount, note, source_file, status
		FROM fee_records WHERE batch_id = ? AND status IN (?, ?) ORDER BY id`,
		batchID, string(model.RecordPending), string(model.RecordError))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]StoredRecord, error) {
	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(
			&r.ID, &r.BatchID, &r.SplitID,
			&r.Contract, &r.Forwarder, &r.FeeName, &r.Currency, &r.Amount, &r.Note, &r.SourceFile,
			&r.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdateRecord 更新一条记录的可编辑字段
func (s *Store) UpdateRecord(id int64, r model.FeeRecord) error {
	res, err := s.db.Exec(`
		UPDATE fee_records
		SET contract = ?, forwarder = ?, fee_name = ?, currency = ?, amount = ?, note = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		r.Contract, r.Forwarder, r.FeeName, r.Currency, r.Amount, r.Note, id)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %d not found", id)
	}
	return nil
}

// DeleteRecord 删除一条记录
func (s *Store) DeleteRecord(id int64) error {
	res, err := s.db.Exec("DELETE FROM fee_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %d not found", id)
	}
	return nil
}

// MarkStatus 批量更新指定 split_id 记录的状态
func (s *Store) MarkStatus(splitIDs []string, status model.RecordStatus) error {
	if len(splitIDs) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(splitIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(splitIDs)+1)
	args = append(args, string(status))
	for _, id := range splitIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"UPDATE fee_records SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE split_id IN (%s)",
		placeholders)
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}
