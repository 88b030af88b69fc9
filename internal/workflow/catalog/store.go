package catalog

import "sync/atomic"

// Source 提供当前生效的规则表快照
type Source interface {
	Tables() *Tables
}

// Store 以原子指针持有规则表，热更新时整体替换，从不原地修改
type Store struct {
	cur atomic.Pointer[Tables]
}

func NewStore(t *Tables) *Store {
	s := &Store{}
	s.cur.Store(t)
	return s
}

func (s *Store) Tables() *Tables {
	return s.cur.Load()
}

// Swap 替换规则表并返回旧版本
func (s *Store) Swap(t *Tables) *Tables {
	return s.cur.Swap(t)
}

func (s *Store) Version() string {
	if t := s.cur.Load(); t != nil {
		return t.Version
	}
	return ""
}
