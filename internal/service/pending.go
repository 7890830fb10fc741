package service

import (
	"sync"

	"github.com/leon37/FinChatLedger/internal/model"
)

// PendingStore 每个用户最多一笔待确认消费，只保存在进程内存里。
// 同时提供按用户的会话锁，同一用户的消息串行处理
type PendingStore struct {
	mu     sync.Mutex
	staged map[string]model.StagedExpense
	locks  map[string]*turnLock
}

type turnLock struct {
	mu   sync.Mutex
	refs int
}

func NewPendingStore() *PendingStore {
	return &PendingStore{
		staged: make(map[string]model.StagedExpense),
		locks:  make(map[string]*turnLock),
	}
}

// Stage 暂存消费，无条件覆盖之前的那一笔
func (s *PendingStore) Stage(userID string, expense model.StagedExpense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[userID] = expense
}

// Get 返回副本，调用方修改不会影响存储
func (s *PendingStore) Get(userID string) (model.StagedExpense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.staged[userID]
	return exp, ok
}

// Update 在副本上执行 fn，成功后才写回；fn 出错时原值不变
func (s *PendingStore) Update(userID string, fn func(*model.StagedExpense) error) (model.StagedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.staged[userID]
	if !ok {
		return model.StagedExpense{}, ErrNothingPending
	}
	if err := fn(&exp); err != nil {
		return s.staged[userID], err
	}
	s.staged[userID] = exp
	return exp, nil
}

// Clear 删除暂存，返回之前是否存在
func (s *PendingStore) Clear(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.staged[userID]
	delete(s.staged, userID)
	return ok
}

// Len 当前暂存的用户数
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// Lock 获取用户的会话锁，返回解锁函数。
// 没人持有的锁会被回收，map 不会无限增长
func (s *PendingStore) Lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &turnLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, userID)
			}
			s.mu.Unlock()
		})
	}
}
