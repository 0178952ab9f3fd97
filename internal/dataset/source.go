package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/park285/agency-dashboard/internal/metrics"
)

// Source: 데이터셋 정의와 로드된 테이블을 보관하는 읽기 전용 데이터 소스
type Source struct {
	dirs   []string
	defs   map[string]Definition
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	index  map[string]map[string]Row
	loaded bool
}

// NewSource: dataDir를 먼저, 작업 디렉터리를 다음으로 탐색하는 Source를 만듭니다.
func NewSource(dataDir string, logger *slog.Logger, defs ...Definition) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if len(defs) == 0 {
		defs = []Definition{Agencies(), Contacts()}
	}
	dirs := []string{dataDir}
	if wd, err := os.Getwd(); err == nil && wd != dataDir {
		dirs = append(dirs, wd)
	}

	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	return &Source{
		dirs:   dirs,
		defs:   byName,
		logger: logger,
		tables: make(map[string]*Table, len(defs)),
		index:  make(map[string]map[string]Row, len(defs)),
	}
}

// Load: 모든 데이터셋을 병렬로 읽어 교체합니다.
// 파일이 없으면 빈 테이블로 두고, 형식 오류는 에러로 반환합니다.
func (s *Source) Load(ctx context.Context) error {
	var mu sync.Mutex
	tables := make(map[string]*Table, len(s.defs))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(len(s.defs) + 1)
	for _, def := range s.defs {
		p.Go(func(ctx context.Context) error {
			table, err := s.loadOne(ctx, def)
			if err != nil {
				return err
			}
			mu.Lock()
			tables[def.Name] = table
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	index := make(map[string]map[string]Row, len(tables))
	for name, table := range tables {
		byID := make(map[string]Row, len(table.Rows))
		for _, row := range table.Rows {
			if id := row.ID(); id != "" {
				if _, dup := byID[id]; !dup {
					byID[id] = row
				}
			}
		}
		index[name] = byID
		metrics.DatasetRows.WithLabelValues(name).Set(float64(table.TotalRows))
	}

	s.mu.Lock()
	s.tables = tables
	s.index = index
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Source) loadOne(ctx context.Context, def Definition) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", def.Name, err)
	}
	for _, dir := range s.dirs {
		path := filepath.Join(dir, def.File)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		table, err := Parse(f, def)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "dataset_loaded",
			slog.String("dataset", def.Name),
			slog.String("path", path),
			slog.Int("rows", table.TotalRows),
			slog.Int("columns", len(table.Columns)),
		)
		return table, nil
	}

	s.logger.WarnContext(ctx, "dataset_file_missing",
		slog.String("dataset", def.Name),
		slog.String("file", def.File),
		slog.Any("searched", s.dirs),
	)
	return &Table{Name: def.Name, Columns: []Column{}, Rows: []Row{}}, nil
}

// Loaded: Load 성공 여부
func (s *Source) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Definition: 이름에 해당하는 정의
func (s *Source) Definition(name string) (Definition, error) {
	def, ok := s.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return def, nil
}

// Table: 로드된 테이블
func (s *Source) Table(name string) (*Table, error) {
	if _, err := s.Definition(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.tables[name]
	if !ok {
		return &Table{Name: name, Columns: []Column{}, Rows: []Row{}}, nil
	}
	return table, nil
}

// Query: 테이블 전체에 검색/정렬/페이지를 적용합니다.
func (s *Source) Query(name string, q Query) (Page, error) {
	def, err := s.Definition(name)
	if err != nil {
		return Page{}, err
	}
	table, err := s.Table(name)
	if err != nil {
		return Page{}, err
	}
	return Apply(table, table.Rows, def, q), nil
}

// Find: 문자열 id로 행을 찾습니다.
func (s *Source) Find(name, id string) (Row, error) {
	if _, err := s.Definition(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.index[name][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrRowNotFound, name, id)
	}
	return row, nil
}

// Counts: 데이터셋별 행 수
func (s *Source) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.tables))
	for name, table := range s.tables {
		out[name] = table.TotalRows
	}
	return out
}
