package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"semdex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLite's default bound-parameter limit is 999. Batch sizes keep every
// multi-row INSERT below it.
const (
	treeNodeBatchSize  = 150 // 5 columns per row
	astNodeBatchSize   = 100 // 9 columns per row
	textChunkBatchSize = 100 // 9 columns per row
	embeddingBatchSize = 50  // 10 columns per row
	pathBatchSize      = 200 // single-column IN clauses
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Both drivers include the same constraint text in their error messages.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Folder operations

// createFolderWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createFolderWithQuerier(ctx context.Context, q querier, folder *Folder) error {
	query := `
		INSERT INTO folders (name, path, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query, folder.Name, folder.Path, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("folder %q: %w", folder.Name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	folder.ID = id
	folder.CreatedAt = now
	folder.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateFolder(ctx context.Context, folder *Folder) error {
	return s.createFolderWithQuerier(ctx, s.querier(), folder)
}

// getFolderWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFolderWithQuerier(ctx context.Context, q querier, name string) (*Folder, error) {
	query := `
		SELECT id, name, path, created_at, updated_at
		FROM folders
		WHERE name = ?
	`
	var folder Folder
	err := q.QueryRowContext(ctx, query, name).Scan(
		&folder.ID, &folder.Name, &folder.Path, &folder.CreatedAt, &folder.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *SQLiteStorage) GetFolder(ctx context.Context, name string) (*Folder, error) {
	return s.getFolderWithQuerier(ctx, s.querier(), name)
}

// getFolderByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFolderByIDWithQuerier(ctx context.Context, q querier, id int64) (*Folder, error) {
	query := `
		SELECT id, name, path, created_at, updated_at
		FROM folders
		WHERE id = ?
	`
	var folder Folder
	err := q.QueryRowContext(ctx, query, id).Scan(
		&folder.ID, &folder.Name, &folder.Path, &folder.CreatedAt, &folder.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *SQLiteStorage) GetFolderByID(ctx context.Context, id int64) (*Folder, error) {
	return s.getFolderByIDWithQuerier(ctx, s.querier(), id)
}

// listFoldersWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFoldersWithQuerier(ctx context.Context, q querier) ([]*Folder, error) {
	query := `
		SELECT id, name, path, created_at, updated_at
		FROM folders
		ORDER BY name
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	folders := make([]*Folder, 0)
	for rows.Next() {
		var folder Folder
		err := rows.Scan(&folder.ID, &folder.Name, &folder.Path, &folder.CreatedAt, &folder.UpdatedAt)
		if err != nil {
			return nil, err
		}
		folders = append(folders, &folder)
	}
	return folders, rows.Err()
}

func (s *SQLiteStorage) ListFolders(ctx context.Context) ([]*Folder, error) {
	return s.listFoldersWithQuerier(ctx, s.querier())
}

// deleteFolderWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteFolderWithQuerier(ctx context.Context, q querier, id int64) error {
	query := `DELETE FROM folders WHERE id = ?`
	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteFolder(ctx context.Context, id int64) error {
	return s.deleteFolderWithQuerier(ctx, s.querier(), id)
}

// Hash tree operations

// replaceTreeNodesWithQuerier deletes the folder's persisted tree and bulk
// inserts the new one in bounded batches
func (s *SQLiteStorage) replaceTreeNodesWithQuerier(ctx context.Context, q querier, folderID int64, nodes []types.FlatNode) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM tree_nodes WHERE folder_id = ?`, folderID); err != nil {
		return fmt.Errorf("failed to clear tree nodes: %w", err)
	}

	for start := 0; start < len(nodes); start += treeNodeBatchSize {
		end := start + treeNodeBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*5)
		for i, n := range batch {
			placeholders[i] = "(?, ?, ?, ?, ?)"
			args = append(args, folderID, n.Path, n.Hash, string(n.Kind), n.Size)
		}

		query := `INSERT INTO tree_nodes (folder_id, path, hash, kind, size_bytes) VALUES ` +
			strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert tree nodes: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ReplaceTreeNodes(ctx context.Context, folderID int64, nodes []types.FlatNode) error {
	return s.replaceTreeNodesWithQuerier(ctx, s.querier(), folderID, nodes)
}

// listTreeNodesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listTreeNodesWithQuerier(ctx context.Context, q querier, folderID int64) ([]types.FlatNode, error) {
	query := `
		SELECT path, hash, kind, size_bytes
		FROM tree_nodes
		WHERE folder_id = ?
		ORDER BY path
	`
	rows, err := q.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]types.FlatNode, 0)
	for rows.Next() {
		var n types.FlatNode
		var kind string
		if err := rows.Scan(&n.Path, &n.Hash, &kind, &n.Size); err != nil {
			return nil, err
		}
		n.Kind = types.NodeKind(kind)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStorage) ListTreeNodes(ctx context.Context, folderID int64) ([]types.FlatNode, error) {
	return s.listTreeNodesWithQuerier(ctx, s.querier(), folderID)
}

// upsertFolderHashWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertFolderHashWithQuerier(ctx context.Context, q querier, hash *FolderHash) error {
	query := `
		INSERT INTO folder_hashes (folder_id, root_hash, checked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(folder_id) DO UPDATE SET
			root_hash = excluded.root_hash,
			checked_at = excluded.checked_at
	`
	if hash.CheckedAt.IsZero() {
		hash.CheckedAt = time.Now()
	}
	if _, err := q.ExecContext(ctx, query, hash.FolderID, hash.RootHash, hash.CheckedAt); err != nil {
		return fmt.Errorf("failed to upsert folder hash: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertFolderHash(ctx context.Context, hash *FolderHash) error {
	return s.upsertFolderHashWithQuerier(ctx, s.querier(), hash)
}

// getFolderHashWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFolderHashWithQuerier(ctx context.Context, q querier, folderID int64) (*FolderHash, error) {
	query := `
		SELECT folder_id, root_hash, checked_at
		FROM folder_hashes
		WHERE folder_id = ?
	`
	var hash FolderHash
	err := q.QueryRowContext(ctx, query, folderID).Scan(&hash.FolderID, &hash.RootHash, &hash.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

func (s *SQLiteStorage) GetFolderHash(ctx context.Context, folderID int64) (*FolderHash, error) {
	return s.getFolderHashWithQuerier(ctx, s.querier(), folderID)
}

// AST snapshot operations

// insertAstFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertAstFileWithQuerier(ctx context.Context, q querier, file *AstFile) error {
	query := `
		INSERT INTO ast_files (folder_id, path, language, content_hash, tree_json, error_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		file.FolderID, file.Path, string(file.Language), file.ContentHash,
		file.TreeJSON, file.ErrorCount, now)
	if err != nil {
		return fmt.Errorf("failed to insert ast file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	file.ID = id
	file.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertAstFile(ctx context.Context, file *AstFile) error {
	return s.insertAstFileWithQuerier(ctx, s.querier(), file)
}

// insertAstNodesWithQuerier bulk inserts declaration rows in bounded batches
func (s *SQLiteStorage) insertAstNodesWithQuerier(ctx context.Context, q querier, nodes []*AstNode) error {
	for start := 0; start < len(nodes); start += astNodeBatchSize {
		end := start + astNodeBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*9)
		for i, n := range batch {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args,
				n.FileID, n.NodePath, n.NodeType, n.Symbol,
				n.StartLine, n.StartCol, n.EndLine, n.EndCol, n.Snippet)
		}

		query := `
			INSERT INTO ast_nodes (file_id, node_path, node_type, symbol,
				start_line, start_col, end_line, end_col, snippet)
			VALUES ` + strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert ast nodes: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertAstNodes(ctx context.Context, nodes []*AstNode) error {
	return s.insertAstNodesWithQuerier(ctx, s.querier(), nodes)
}

// getAstFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getAstFileWithQuerier(ctx context.Context, q querier, folderID int64, path string) (*AstFile, error) {
	query := `
		SELECT id, folder_id, path, language, content_hash, tree_json, error_count, created_at
		FROM ast_files
		WHERE folder_id = ? AND path = ?
	`
	var file AstFile
	var language string
	err := q.QueryRowContext(ctx, query, folderID, path).Scan(
		&file.ID, &file.FolderID, &file.Path, &language, &file.ContentHash,
		&file.TreeJSON, &file.ErrorCount, &file.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	file.Language = types.Language(language)
	return &file, nil
}

func (s *SQLiteStorage) GetAstFile(ctx context.Context, folderID int64, path string) (*AstFile, error) {
	return s.getAstFileWithQuerier(ctx, s.querier(), folderID, path)
}

// listAstFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listAstFilesWithQuerier(ctx context.Context, q querier, folderID int64) ([]*AstFile, error) {
	query := `
		SELECT id, folder_id, path, language, content_hash, tree_json, error_count, created_at
		FROM ast_files
		WHERE folder_id = ?
		ORDER BY path
	`
	rows, err := q.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*AstFile, 0)
	for rows.Next() {
		var file AstFile
		var language string
		err := rows.Scan(
			&file.ID, &file.FolderID, &file.Path, &language, &file.ContentHash,
			&file.TreeJSON, &file.ErrorCount, &file.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		file.Language = types.Language(language)
		files = append(files, &file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListAstFiles(ctx context.Context, folderID int64) ([]*AstFile, error) {
	return s.listAstFilesWithQuerier(ctx, s.querier(), folderID)
}

// countAstFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countAstFilesWithQuerier(ctx context.Context, q querier, folderID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ast_files WHERE folder_id = ?`, folderID).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountAstFiles(ctx context.Context, folderID int64) (int, error) {
	return s.countAstFilesWithQuerier(ctx, s.querier(), folderID)
}

// deleteAstFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteAstFilesWithQuerier(ctx context.Context, q querier, folderID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM ast_files WHERE folder_id = ?`, folderID)
	return err
}

func (s *SQLiteStorage) DeleteAstFiles(ctx context.Context, folderID int64) error {
	return s.deleteAstFilesWithQuerier(ctx, s.querier(), folderID)
}

// deleteAstFilesByPathWithQuerier deletes file snapshots by path using
// parameterized IN clauses in bounded batches
func (s *SQLiteStorage) deleteAstFilesByPathWithQuerier(ctx context.Context, q querier, folderID int64, paths []string) error {
	for start := 0; start < len(paths); start += pathBatchSize {
		end := start + pathBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)+1)
		args = append(args, folderID)
		for i, p := range batch {
			placeholders[i] = "?"
			args = append(args, p)
		}

		query := `DELETE FROM ast_files WHERE folder_id = ? AND path IN (` +
			strings.Join(placeholders, ",") + `)`
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) DeleteAstFilesByPath(ctx context.Context, folderID int64, paths []string) error {
	return s.deleteAstFilesByPathWithQuerier(ctx, s.querier(), folderID, paths)
}

// listAstNodesByFolderWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listAstNodesByFolderWithQuerier(ctx context.Context, q querier, folderID int64) ([]*AstNode, error) {
	query := `
		SELECT n.id, n.file_id, n.node_path, n.node_type, n.symbol,
		       n.start_line, n.start_col, n.end_line, n.end_col, n.snippet
		FROM ast_nodes n
		JOIN ast_files f ON n.file_id = f.id
		WHERE f.folder_id = ?
		ORDER BY f.path, n.start_line
	`
	rows, err := q.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]*AstNode, 0)
	for rows.Next() {
		var n AstNode
		err := rows.Scan(
			&n.ID, &n.FileID, &n.NodePath, &n.NodeType, &n.Symbol,
			&n.StartLine, &n.StartCol, &n.EndLine, &n.EndCol, &n.Snippet,
		)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStorage) ListAstNodesByFolder(ctx context.Context, folderID int64) ([]*AstNode, error) {
	return s.listAstNodesByFolderWithQuerier(ctx, s.querier(), folderID)
}

// getAstNodeWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getAstNodeWithQuerier(ctx context.Context, q querier, nodeID int64) (*AstNode, error) {
	query := `
		SELECT id, file_id, node_path, node_type, symbol,
		       start_line, start_col, end_line, end_col, snippet
		FROM ast_nodes
		WHERE id = ?
	`
	var n AstNode
	err := q.QueryRowContext(ctx, query, nodeID).Scan(
		&n.ID, &n.FileID, &n.NodePath, &n.NodeType, &n.Symbol,
		&n.StartLine, &n.StartCol, &n.EndLine, &n.EndCol, &n.Snippet,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *SQLiteStorage) GetAstNode(ctx context.Context, nodeID int64) (*AstNode, error) {
	return s.getAstNodeWithQuerier(ctx, s.querier(), nodeID)
}

// Text chunk operations

// insertTextChunksWithQuerier bulk inserts chunk rows in bounded batches
func (s *SQLiteStorage) insertTextChunksWithQuerier(ctx context.Context, q querier, chunks []*TextChunk) error {
	for start := 0; start < len(chunks); start += textChunkBatchSize {
		end := start + textChunkBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*9)
		for i, c := range batch {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args,
				c.FolderID, c.Path, string(c.Format), c.ChunkIndex,
				c.StartOffset, c.EndOffset, c.Content, c.TokenCount, c.ContentHash)
		}

		query := `
			INSERT INTO text_chunks (folder_id, path, format, chunk_index,
				start_offset, end_offset, content, token_count, content_hash)
			VALUES ` + strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert text chunks: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertTextChunks(ctx context.Context, chunks []*TextChunk) error {
	return s.insertTextChunksWithQuerier(ctx, s.querier(), chunks)
}

// listTextChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listTextChunksWithQuerier(ctx context.Context, q querier, folderID int64) ([]*TextChunk, error) {
	query := `
		SELECT id, folder_id, path, format, chunk_index,
		       start_offset, end_offset, content, token_count, content_hash
		FROM text_chunks
		WHERE folder_id = ?
		ORDER BY path, chunk_index
	`
	rows, err := q.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*TextChunk, 0)
	for rows.Next() {
		var c TextChunk
		var format string
		err := rows.Scan(
			&c.ID, &c.FolderID, &c.Path, &format, &c.ChunkIndex,
			&c.StartOffset, &c.EndOffset, &c.Content, &c.TokenCount, &c.ContentHash,
		)
		if err != nil {
			return nil, err
		}
		c.Format = types.TextFormat(format)
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListTextChunks(ctx context.Context, folderID int64) ([]*TextChunk, error) {
	return s.listTextChunksWithQuerier(ctx, s.querier(), folderID)
}

// listChunkedFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunkedFilesWithQuerier(ctx context.Context, q querier, folderID int64) ([]ChunkedFile, error) {
	query := `
		SELECT path, content_hash, COUNT(*)
		FROM text_chunks
		WHERE folder_id = ?
		GROUP BY path, content_hash
		ORDER BY path
	`
	rows, err := q.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]ChunkedFile, 0)
	for rows.Next() {
		var f ChunkedFile
		if err := rows.Scan(&f.Path, &f.ContentHash, &f.ChunkCount); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListChunkedFiles(ctx context.Context, folderID int64) ([]ChunkedFile, error) {
	return s.listChunkedFilesWithQuerier(ctx, s.querier(), folderID)
}

// getTextChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getTextChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*TextChunk, error) {
	query := `
		SELECT id, folder_id, path, format, chunk_index,
		       start_offset, end_offset, content, token_count, content_hash
		FROM text_chunks
		WHERE id = ?
	`
	var c TextChunk
	var format string
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&c.ID, &c.FolderID, &c.Path, &format, &c.ChunkIndex,
		&c.StartOffset, &c.EndOffset, &c.Content, &c.TokenCount, &c.ContentHash,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Format = types.TextFormat(format)
	return &c, nil
}

func (s *SQLiteStorage) GetTextChunk(ctx context.Context, chunkID int64) (*TextChunk, error) {
	return s.getTextChunkWithQuerier(ctx, s.querier(), chunkID)
}

// deleteTextChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteTextChunksWithQuerier(ctx context.Context, q querier, folderID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM text_chunks WHERE folder_id = ?`, folderID)
	return err
}

func (s *SQLiteStorage) DeleteTextChunks(ctx context.Context, folderID int64) error {
	return s.deleteTextChunksWithQuerier(ctx, s.querier(), folderID)
}

// deleteTextChunksByPathWithQuerier deletes chunk rows by file path using
// parameterized IN clauses in bounded batches
func (s *SQLiteStorage) deleteTextChunksByPathWithQuerier(ctx context.Context, q querier, folderID int64, paths []string) error {
	for start := 0; start < len(paths); start += pathBatchSize {
		end := start + pathBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)+1)
		args = append(args, folderID)
		for i, p := range batch {
			placeholders[i] = "?"
			args = append(args, p)
		}

		query := `DELETE FROM text_chunks WHERE folder_id = ? AND path IN (` +
			strings.Join(placeholders, ",") + `)`
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) DeleteTextChunksByPath(ctx context.Context, folderID int64, paths []string) error {
	return s.deleteTextChunksByPathWithQuerier(ctx, s.querier(), folderID, paths)
}

// Embedding operations

// insertEmbeddingsWithQuerier bulk inserts vector rows in bounded batches.
// On the plain DB querier each batch statement commits on its own, so a
// cancelled or crashed job leaves whole batches rather than torn rows.
func (s *SQLiteStorage) insertEmbeddingsWithQuerier(ctx context.Context, q querier, rows []*Embedding) error {
	now := time.Now()
	for start := 0; start < len(rows); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*10)
		for i, e := range batch {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args,
				e.FolderID, string(e.Kind), e.SourceID, e.FilePath,
				e.Vector, e.Dimension, e.Provider, e.Model, e.Stage, now)
		}

		query := `
			INSERT INTO embeddings (folder_id, source_kind, source_id, file_path,
				vector, dimension, provider, model, stage, created_at)
			VALUES ` + strings.Join(placeholders, ", ")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert embeddings: %w", err)
		}
		for _, e := range batch {
			e.CreatedAt = now
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertEmbeddings(ctx context.Context, rows []*Embedding) error {
	return s.insertEmbeddingsWithQuerier(ctx, s.querier(), rows)
}

// listEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listEmbeddingsWithQuerier(ctx context.Context, q querier, folderID int64, stage string) ([]*Embedding, error) {
	query := `
		SELECT id, folder_id, source_kind, source_id, file_path,
		       vector, dimension, provider, model, stage, created_at
		FROM embeddings
		WHERE folder_id = ? AND stage = ?
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, folderID, stage)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]*Embedding, 0)
	for rows.Next() {
		var e Embedding
		var kind string
		err := rows.Scan(
			&e.ID, &e.FolderID, &kind, &e.SourceID, &e.FilePath,
			&e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.Stage, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Kind = types.DocumentKind(kind)
		result = append(result, &e)
	}
	return result, rows.Err()
}

func (s *SQLiteStorage) ListEmbeddings(ctx context.Context, folderID int64, stage string) ([]*Embedding, error) {
	return s.listEmbeddingsWithQuerier(ctx, s.querier(), folderID, stage)
}

// countEmbeddingsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countEmbeddingsWithQuerier(ctx context.Context, q querier, folderID int64, stage string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE folder_id = ? AND stage = ?`,
		folderID, stage).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, folderID int64, stage string) (int, error) {
	return s.countEmbeddingsWithQuerier(ctx, s.querier(), folderID, stage)
}

// deleteEmbeddingsByStageWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEmbeddingsByStageWithQuerier(ctx context.Context, q querier, folderID int64, stage string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM embeddings WHERE folder_id = ? AND stage = ?`,
		folderID, stage)
	return err
}

func (s *SQLiteStorage) DeleteEmbeddingsByStage(ctx context.Context, folderID int64, stage string) error {
	return s.deleteEmbeddingsByStageWithQuerier(ctx, s.querier(), folderID, stage)
}

// Status operations

// getFolderStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFolderStatusWithQuerier(ctx context.Context, q querier, folderID int64) (*FolderStatus, error) {
	folder, err := s.getFolderByIDWithQuerier(ctx, q, folderID)
	if err != nil {
		return nil, err
	}

	status := &FolderStatus{Folder: folder}

	hash, err := s.getFolderHashWithQuerier(ctx, q, folderID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if hash != nil {
		status.RootHash = hash.RootHash
		status.CheckedAt = hash.CheckedAt
	}

	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tree_nodes WHERE folder_id = ? AND kind = 'file'`,
		folderID).Scan(&status.TreeFileCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ast_files WHERE folder_id = ?`,
		folderID).Scan(&status.AstFileCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ast_nodes n
		JOIN ast_files f ON n.file_id = f.id
		WHERE f.folder_id = ?
	`, folderID).Scan(&status.AstNodeCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM text_chunks WHERE folder_id = ?`,
		folderID).Scan(&status.TextChunkCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE folder_id = ?`,
		folderID).Scan(&status.EmbeddingCount)
	if err != nil {
		return nil, err
	}

	return status, nil
}

func (s *SQLiteStorage) GetFolderStatus(ctx context.Context, folderID int64) (*FolderStatus, error) {
	return s.getFolderStatusWithQuerier(ctx, s.querier(), folderID)
}

// Transaction implementations

// Every operation goes through the internal helper with the transaction's
// querier so reads observe uncommitted writes.

func (t *sqliteTx) CreateFolder(ctx context.Context, folder *Folder) error {
	return t.storage.createFolderWithQuerier(ctx, t.querier(), folder)
}

func (t *sqliteTx) GetFolder(ctx context.Context, name string) (*Folder, error) {
	return t.storage.getFolderWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) GetFolderByID(ctx context.Context, id int64) (*Folder, error) {
	return t.storage.getFolderByIDWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListFolders(ctx context.Context) ([]*Folder, error) {
	return t.storage.listFoldersWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteFolder(ctx context.Context, id int64) error {
	return t.storage.deleteFolderWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ReplaceTreeNodes(ctx context.Context, folderID int64, nodes []types.FlatNode) error {
	return t.storage.replaceTreeNodesWithQuerier(ctx, t.querier(), folderID, nodes)
}

func (t *sqliteTx) ListTreeNodes(ctx context.Context, folderID int64) ([]types.FlatNode, error) {
	return t.storage.listTreeNodesWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) UpsertFolderHash(ctx context.Context, hash *FolderHash) error {
	return t.storage.upsertFolderHashWithQuerier(ctx, t.querier(), hash)
}

func (t *sqliteTx) GetFolderHash(ctx context.Context, folderID int64) (*FolderHash, error) {
	return t.storage.getFolderHashWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) InsertAstFile(ctx context.Context, file *AstFile) error {
	return t.storage.insertAstFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) InsertAstNodes(ctx context.Context, nodes []*AstNode) error {
	return t.storage.insertAstNodesWithQuerier(ctx, t.querier(), nodes)
}

func (t *sqliteTx) GetAstFile(ctx context.Context, folderID int64, path string) (*AstFile, error) {
	return t.storage.getAstFileWithQuerier(ctx, t.querier(), folderID, path)
}

func (t *sqliteTx) ListAstFiles(ctx context.Context, folderID int64) ([]*AstFile, error) {
	return t.storage.listAstFilesWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) CountAstFiles(ctx context.Context, folderID int64) (int, error) {
	return t.storage.countAstFilesWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) DeleteAstFiles(ctx context.Context, folderID int64) error {
	return t.storage.deleteAstFilesWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) DeleteAstFilesByPath(ctx context.Context, folderID int64, paths []string) error {
	return t.storage.deleteAstFilesByPathWithQuerier(ctx, t.querier(), folderID, paths)
}

func (t *sqliteTx) ListAstNodesByFolder(ctx context.Context, folderID int64) ([]*AstNode, error) {
	return t.storage.listAstNodesByFolderWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) GetAstNode(ctx context.Context, nodeID int64) (*AstNode, error) {
	return t.storage.getAstNodeWithQuerier(ctx, t.querier(), nodeID)
}

func (t *sqliteTx) InsertTextChunks(ctx context.Context, chunks []*TextChunk) error {
	return t.storage.insertTextChunksWithQuerier(ctx, t.querier(), chunks)
}

func (t *sqliteTx) ListTextChunks(ctx context.Context, folderID int64) ([]*TextChunk, error) {
	return t.storage.listTextChunksWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) ListChunkedFiles(ctx context.Context, folderID int64) ([]ChunkedFile, error) {
	return t.storage.listChunkedFilesWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) GetTextChunk(ctx context.Context, chunkID int64) (*TextChunk, error) {
	return t.storage.getTextChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) DeleteTextChunks(ctx context.Context, folderID int64) error {
	return t.storage.deleteTextChunksWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) DeleteTextChunksByPath(ctx context.Context, folderID int64, paths []string) error {
	return t.storage.deleteTextChunksByPathWithQuerier(ctx, t.querier(), folderID, paths)
}

func (t *sqliteTx) InsertEmbeddings(ctx context.Context, rows []*Embedding) error {
	return t.storage.insertEmbeddingsWithQuerier(ctx, t.querier(), rows)
}

func (t *sqliteTx) ListEmbeddings(ctx context.Context, folderID int64, stage string) ([]*Embedding, error) {
	return t.storage.listEmbeddingsWithQuerier(ctx, t.querier(), folderID, stage)
}

func (t *sqliteTx) CountEmbeddings(ctx context.Context, folderID int64, stage string) (int, error) {
	return t.storage.countEmbeddingsWithQuerier(ctx, t.querier(), folderID, stage)
}

func (t *sqliteTx) DeleteEmbeddingsByStage(ctx context.Context, folderID int64, stage string) error {
	return t.storage.deleteEmbeddingsByStageWithQuerier(ctx, t.querier(), folderID, stage)
}

func (t *sqliteTx) GetFolderStatus(ctx context.Context, folderID int64) (*FolderStatus, error) {
	return t.storage.getFolderStatusWithQuerier(ctx, t.querier(), folderID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
