package storage

import (
	"context"
	"time"

	"semdex/pkg/types"
)

// StageInitial is the embedding generation stage written by indexing jobs.
// Every job fully replaces the folder's rows at this stage.
const StageInitial = "initial"

// Folder represents a registered folder
type Folder struct {
	ID        int64
	Name      string
	Path      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderHash is the persisted root hash of a folder's tree, overwritten
// wholesale on every poll tick.
type FolderHash struct {
	FolderID  int64
	RootHash  string
	CheckedAt time.Time
}

// AstFile is one parsed source file snapshot. TreeJSON holds the filtered
// focus-node tree; ErrorCount is the number of syntax error nodes observed
// during parsing.
type AstFile struct {
	ID          int64
	FolderID    int64
	Path        string
	Language    types.Language
	ContentHash string
	TreeJSON    string
	ErrorCount  int
	CreatedAt   time.Time
}

// AstNode is one top-level focus declaration, individually addressable for
// embedding provenance.
type AstNode struct {
	ID        int64
	FileID    int64
	NodePath  string
	NodeType  string
	Symbol    string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Snippet   string
}

// TextChunk is one token-bounded window over a plain-document file.
// ContentHash is the hash of the whole source file, repeated per chunk so
// snapshot freshness can be checked without re-reading the file.
type TextChunk struct {
	ID          int64
	FolderID    int64
	Path        string
	Format      types.TextFormat
	ChunkIndex  int
	StartOffset int
	EndOffset   int
	Content     string
	TokenCount  int
	ContentHash string
}

// ChunkedFile summarizes the chunk snapshot of one file.
type ChunkedFile struct {
	Path        string
	ContentHash string
	ChunkCount  int
}

// Embedding is one persisted vector row with provenance linkage back to its
// snapshot source. Vector is a little-endian float32 blob of Dimension
// elements.
type Embedding struct {
	ID        int64
	FolderID  int64
	Kind      types.DocumentKind
	SourceID  int64
	FilePath  string
	Vector    []byte
	Dimension int
	Provider  string
	Model     string
	Stage     string
	CreatedAt time.Time
}

// FolderStatus aggregates per-folder index statistics.
type FolderStatus struct {
	Folder         *Folder
	RootHash       string
	CheckedAt      time.Time
	TreeFileCount  int
	AstFileCount   int
	AstNodeCount   int
	TextChunkCount int
	EmbeddingCount int
}

// Storage defines the interface for persisting folder hash trees, parse
// snapshots, and embedding rows
type Storage interface {
	// Folder operations
	CreateFolder(ctx context.Context, folder *Folder) error
	GetFolder(ctx context.Context, name string) (*Folder, error)
	GetFolderByID(ctx context.Context, id int64) (*Folder, error)
	ListFolders(ctx context.Context) ([]*Folder, error)
	DeleteFolder(ctx context.Context, id int64) error

	// Hash tree operations
	ReplaceTreeNodes(ctx context.Context, folderID int64, nodes []types.FlatNode) error
	ListTreeNodes(ctx context.Context, folderID int64) ([]types.FlatNode, error)
	UpsertFolderHash(ctx context.Context, hash *FolderHash) error
	GetFolderHash(ctx context.Context, folderID int64) (*FolderHash, error)

	// AST snapshot operations
	InsertAstFile(ctx context.Context, file *AstFile) error
	InsertAstNodes(ctx context.Context, nodes []*AstNode) error
	GetAstFile(ctx context.Context, folderID int64, path string) (*AstFile, error)
	ListAstFiles(ctx context.Context, folderID int64) ([]*AstFile, error)
	CountAstFiles(ctx context.Context, folderID int64) (int, error)
	DeleteAstFiles(ctx context.Context, folderID int64) error
	DeleteAstFilesByPath(ctx context.Context, folderID int64, paths []string) error
	ListAstNodesByFolder(ctx context.Context, folderID int64) ([]*AstNode, error)
	GetAstNode(ctx context.Context, nodeID int64) (*AstNode, error)

	// Text chunk operations
	InsertTextChunks(ctx context.Context, chunks []*TextChunk) error
	ListTextChunks(ctx context.Context, folderID int64) ([]*TextChunk, error)
	ListChunkedFiles(ctx context.Context, folderID int64) ([]ChunkedFile, error)
	GetTextChunk(ctx context.Context, chunkID int64) (*TextChunk, error)
	DeleteTextChunks(ctx context.Context, folderID int64) error
	DeleteTextChunksByPath(ctx context.Context, folderID int64, paths []string) error

	// Embedding operations
	InsertEmbeddings(ctx context.Context, rows []*Embedding) error
	ListEmbeddings(ctx context.Context, folderID int64, stage string) ([]*Embedding, error)
	CountEmbeddings(ctx context.Context, folderID int64, stage string) (int, error)
	DeleteEmbeddingsByStage(ctx context.Context, folderID int64, stage string) error

	// Status operations
	GetFolderStatus(ctx context.Context, folderID int64) (*FolderStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Storage
	Commit() error
	Rollback() error
}
