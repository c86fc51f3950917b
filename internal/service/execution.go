package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/agentteams/agent/hierarchical"
	"github.com/BaSui01/agentteams/api"
	"github.com/BaSui01/agentteams/internal/ctxkeys"
	"github.com/BaSui01/agentteams/internal/metrics"
	"github.com/BaSui01/agentteams/internal/store"
	"github.com/BaSui01/agentteams/teamconfig"
	"github.com/BaSui01/agentteams/types"
)

const (
	defaultExecutionTimeout = 300 * time.Second
	defaultMaxConcurrent    = 10
	storeWriteTimeout       = 10 * time.Second
	subscriberBuffer        = 16

	progressRunning   = 10
	progressCompleted = 100
)

// ExecutionObserver 执行到达终态后回调。worker 为实际执行的 Worker，可能为空。
type ExecutionObserver func(e *store.Execution, worker string)

// ExecutionOptions ExecutionService 参数
type ExecutionOptions struct {
	DefaultTimeout time.Duration
	MaxConcurrent  int
	Observers      []ExecutionObserver
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// run 单个执行的本地状态。mu 保证 Cancel 与完成写入只生效一次。
type run struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	done   bool
}

// subscriber 状态订阅者
type subscriber struct {
	ch     chan api.ExecutionResponse
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) send(resp api.ExecutionResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- resp:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// ExecutionService 在后台执行团队任务并跟踪状态
type ExecutionService struct {
	executions store.ExecutionStore
	teams      *TeamService
	sem        *semaphore.Weighted
	opts       ExecutionOptions
	logger     *zap.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	running     map[string]*run
	subscribers map[string][]*subscriber
}

// NewExecutionService 创建执行服务
func NewExecutionService(executions store.ExecutionStore, teams *TeamService, opts ExecutionOptions) *ExecutionService {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultExecutionTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &ExecutionService{
		executions:  executions,
		teams:       teams,
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:        opts,
		logger:      logger.With(zap.String("component", "execution_service")),
		baseCtx:     ctx,
		stop:        stop,
		running:     make(map[string]*run),
		subscribers: make(map[string][]*subscriber),
	}
}

// Execute 创建 pending 执行并立即返回，任务在后台运行
func (s *ExecutionService) Execute(ctx context.Context, teamID string, req *api.ExecutionRequest) (*api.ExecutionResponse, error) {
	input := strings.TrimSpace(req.InputText)
	if input == "" {
		return nil, types.NewInvalidRequestError("input_text is required")
	}
	if req.TimeoutSeconds < 0 {
		return nil, types.NewInvalidRequestError("timeout_seconds must be >= 0")
	}

	team, err := s.teams.Runtime(ctx, teamID)
	if err != nil {
		return nil, err
	}
	workerID := strings.TrimSpace(req.WorkerID)
	if workerID != "" && !team.HasWorker(workerID) {
		return nil, types.NewNotFoundError("agent", workerID)
	}

	timeout := s.opts.DefaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	exec := &store.Execution{
		ID:         uuid.NewString(),
		TeamID:     teamID,
		WorkerID:   workerID,
		InputText:  req.InputText,
		Parameters: teamconfig.Clone(req.Parameters),
		Status:     store.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.executions.Create(ctx, exec); err != nil {
		return nil, storeError(err, "execution", exec.ID)
	}

	runCtx, cancel := context.WithTimeout(s.baseCtx, timeout)
	r := &run{cancel: cancel}

	s.mu.Lock()
	s.running[exec.ID] = r
	active := len(s.running)
	s.mu.Unlock()
	s.setActive(active)

	s.logger.Info("execution submitted",
		zap.String("execution_id", exec.ID),
		zap.String("team_id", teamID),
		zap.String("worker_id", workerID),
		zap.Duration("timeout", timeout))

	snapshot := *exec
	s.wg.Add(1)
	go s.execute(runCtx, r, team, &snapshot, timeout)

	return toExecutionResponse(exec), nil
}

func (s *ExecutionService) execute(ctx context.Context, r *run, team *hierarchical.Team, e *store.Execution, timeout time.Duration) {
	defer s.wg.Done()
	defer r.cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.finish(r, e, nil, err, timeout)
		return
	}
	defer s.sem.Release(1)

	now := time.Now().UTC()
	e.Status = store.StatusRunning
	e.Progress = progressRunning
	e.StartedAt = &now
	if !s.transition(r, e, false) {
		return
	}

	ctx = ctxkeys.WithExecution(ctx, e.TeamID, e.ID)
	var (
		res *hierarchical.RunResult
		err error
	)
	if e.WorkerID != "" {
		res, err = team.RunWorker(ctx, e.WorkerID, e.InputText, e.Parameters)
	} else {
		res, err = team.Run(ctx, e.InputText, e.Parameters)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	s.finish(r, e, res, err, timeout)
}

// finish 写入终态
func (s *ExecutionService) finish(r *run, e *store.Execution, res *hierarchical.RunResult, err error, timeout time.Duration) {
	now := time.Now().UTC()
	e.CompletedAt = &now

	switch {
	case err == nil:
		e.Status = store.StatusCompleted
		e.Progress = progressCompleted
		e.Result = toStoreResult(res, e, now)
	case errors.Is(err, context.DeadlineExceeded):
		e.Status = store.StatusTimeout
		e.ErrorMessage = fmt.Sprintf("Execution timed out after %d seconds", int(timeout.Seconds()))
	case errors.Is(err, context.Canceled):
		e.Status = store.StatusFailed
		e.ErrorMessage = "Execution was cancelled"
	default:
		e.Status = store.StatusFailed
		e.ErrorMessage = err.Error()
	}

	if !s.transition(r, e, true) {
		return
	}

	worker := e.WorkerID
	if res != nil && res.Worker != "" {
		worker = res.Worker
	}
	s.completed(e, worker)
}

// transition 在 run 未被终结时写入状态，terminal 为 true 时终结 run
func (s *ExecutionService) transition(r *run, e *store.Execution, terminal bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	if terminal {
		r.done = true
		s.release(e.ID)
	}
	s.save(e)
	return true
}

func (s *ExecutionService) save(e *store.Execution) {
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()
	if err := s.executions.Update(ctx, e); err != nil {
		s.logger.Error("failed to persist execution state",
			zap.String("execution_id", e.ID),
			zap.String("status", string(e.Status)),
			zap.Error(err))
	}
	s.publish(e)
}

func (s *ExecutionService) release(id string) {
	s.mu.Lock()
	delete(s.running, id)
	active := len(s.running)
	s.mu.Unlock()
	s.setActive(active)
}

func (s *ExecutionService) completed(e *store.Execution, worker string) {
	var dur time.Duration
	switch {
	case e.StartedAt != nil && e.CompletedAt != nil:
		dur = e.CompletedAt.Sub(*e.StartedAt)
	case e.CompletedAt != nil:
		dur = e.CompletedAt.Sub(e.CreatedAt)
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordExecution(string(e.Status), dur)
	}
	for _, obs := range s.opts.Observers {
		obs(e, worker)
	}
	s.logger.Info("execution finished",
		zap.String("execution_id", e.ID),
		zap.String("status", string(e.Status)),
		zap.Duration("duration", dur),
		zap.String("error", e.ErrorMessage))
}

func (s *ExecutionService) setActive(n int) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetActiveExecutions(n)
	}
}

// =============================================================================
// 查询与取消
// =============================================================================

// Get 返回执行状态
func (s *ExecutionService) Get(ctx context.Context, id string) (*api.ExecutionResponse, error) {
	e, err := s.executions.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "execution", id)
	}
	return toExecutionResponse(e), nil
}

// List 按条件列出执行记录
func (s *ExecutionService) List(ctx context.Context, req *api.ExecutionListRequest) (*api.ExecutionListResponse, error) {
	filter := store.ExecutionFilter{
		TeamID:         req.TeamID,
		Status:         store.ExecutionStatus(req.Status),
		OrderBy:        req.OrderBy,
		OrderDirection: strings.ToLower(req.OrderDirection),
		Limit:          req.Limit,
		Offset:         req.Offset,
	}
	switch filter.Status {
	case "", store.StatusPending, store.StatusRunning, store.StatusCompleted, store.StatusFailed, store.StatusTimeout:
	default:
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid status %q", req.Status))
	}
	switch filter.OrderBy {
	case "", store.OrderByCreatedAt, store.OrderByCompletedAt, store.OrderByStatus:
	default:
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid order_by %q: use created_at, completed_at or status", req.OrderBy))
	}
	switch filter.OrderDirection {
	case "", store.OrderAsc, store.OrderDesc:
	default:
		return nil, types.NewInvalidRequestError(fmt.Sprintf("invalid order_direction %q: use asc or desc", req.OrderDirection))
	}
	filter = filter.Normalize()

	list, total, err := s.executions.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "execution", "")
	}
	resp := &api.ExecutionListResponse{
		Executions: make([]api.ExecutionResponse, 0, len(list)),
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	for i := range list {
		resp.Executions = append(resp.Executions, *toExecutionResponse(&list[i]))
	}
	return resp, nil
}

// Cancel 取消 pending 或 running 的执行，状态置为 failed
func (s *ExecutionService) Cancel(ctx context.Context, id, reason string) (*api.ExecutionCancelResponse, error) {
	e, err := s.executions.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "execution", id)
	}
	if !e.Status.Active() {
		return nil, notCancellable(e)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "User requested cancellation"
	}

	s.mu.Lock()
	r, tracked := s.running[id]
	s.mu.Unlock()

	now := time.Now().UTC()
	if tracked {
		r.mu.Lock()
		if r.done {
			r.mu.Unlock()
			latest, err := s.executions.Get(ctx, id)
			if err != nil {
				return nil, storeError(err, "execution", id)
			}
			return nil, notCancellable(latest)
		}
		r.done = true
		s.release(id)
		r.cancel()
		// 重新读取，避免覆盖后台刚写入的 running 状态
		if latest, err := s.executions.Get(ctx, id); err == nil {
			e = latest
		}
		e.Status = store.StatusFailed
		e.ErrorMessage = "Cancelled: " + reason
		e.CompletedAt = &now
		s.save(e)
		r.mu.Unlock()
	} else {
		// 其他实例或重启前提交的执行，只能更新记录
		e.Status = store.StatusFailed
		e.ErrorMessage = "Cancelled: " + reason
		e.CompletedAt = &now
		s.save(e)
	}

	s.completed(e, e.WorkerID)
	return &api.ExecutionCancelResponse{
		ExecutionID: id,
		Message:     "Execution cancelled successfully",
		CancelledAt: now,
	}, nil
}

func notCancellable(e *store.Execution) *types.Error {
	return types.NewError(types.ErrExecutionNotCancellable,
		fmt.Sprintf("Cannot cancel execution with status: %s", e.Status))
}

// ActiveCount 本实例中 pending 与 running 的执行数
func (s *ExecutionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// =============================================================================
// 订阅
// =============================================================================

// Subscribe 订阅执行状态。先推送当前状态，终态后通道关闭。
// 返回的 cancel 用于提前退订。
func (s *ExecutionService) Subscribe(ctx context.Context, id string) (<-chan api.ExecutionResponse, func(), error) {
	sub := &subscriber{ch: make(chan api.ExecutionResponse, subscriberBuffer)}

	s.mu.Lock()
	s.subscribers[id] = append(s.subscribers[id], sub)
	s.mu.Unlock()
	unsubscribe := func() { s.unsubscribe(id, sub) }

	e, err := s.executions.Get(ctx, id)
	if err != nil {
		unsubscribe()
		return nil, nil, storeError(err, "execution", id)
	}
	sub.send(*toExecutionResponse(e))
	if e.Status.Terminal() {
		unsubscribe()
	}
	return sub.ch, unsubscribe, nil
}

func (s *ExecutionService) unsubscribe(id string, sub *subscriber) {
	s.mu.Lock()
	subs := s.subscribers[id]
	for i, x := range subs {
		if x == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(s.subscribers, id)
	} else {
		s.subscribers[id] = subs
	}
	s.mu.Unlock()
	sub.close()
}

func (s *ExecutionService) publish(e *store.Execution) {
	resp := *toExecutionResponse(e)

	s.mu.Lock()
	subs := append([]*subscriber(nil), s.subscribers[e.ID]...)
	if e.Status.Terminal() {
		delete(s.subscribers, e.ID)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.send(resp)
		if e.Status.Terminal() {
			sub.close()
		}
	}
}

// Shutdown 取消全部执行并等待后台任务退出
func (s *ExecutionService) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// 转换
// =============================================================================

func currentStep(e *store.Execution) string {
	switch e.Status {
	case store.StatusPending:
		return "Queued"
	case store.StatusRunning:
		if e.WorkerID != "" {
			return "Executing worker " + e.WorkerID
		}
		return "Routing request through coordinator"
	case store.StatusCompleted:
		return "Completed"
	default:
		return ""
	}
}

func toStoreResult(res *hierarchical.RunResult, e *store.Execution, now time.Time) *store.ExecutionResult {
	out := &store.ExecutionResult{}
	if e.StartedAt != nil {
		out.ExecutionTimeSeconds = now.Sub(*e.StartedAt).Seconds()
	}
	if res == nil {
		return out
	}
	out.Response = res.Response
	out.Reasoning = res.Reasoning
	out.IntermediateSteps = res.IntermediateSteps
	out.UsedTools = res.UsedTools
	out.Metadata = map[string]any{}
	for k, v := range res.Metadata {
		out.Metadata[k] = v
	}
	if res.Team != "" {
		out.Metadata["team"] = res.Team
	}
	if res.Worker != "" {
		out.Metadata["worker"] = res.Worker
	}
	if res.Usage.TotalTokens > 0 {
		out.Metadata["total_tokens"] = res.Usage.TotalTokens
	}
	return out
}

func toExecutionResponse(e *store.Execution) *api.ExecutionResponse {
	resp := &api.ExecutionResponse{
		ExecutionID: e.ID,
		Status: api.ExecutionStatus{
			Status:       string(e.Status),
			Progress:     e.Progress,
			CurrentStep:  currentStep(e),
			StartedAt:    e.StartedAt,
			CompletedAt:  e.CompletedAt,
			ErrorMessage: e.ErrorMessage,
		},
		Metadata: api.ExecutionMetadata{
			ExecutionID: e.ID,
			TeamID:      e.TeamID,
			WorkerID:    e.WorkerID,
			InputText:   e.InputText,
			Parameters:  e.Parameters,
			CreatedAt:   e.CreatedAt,
		},
	}
	if r := e.Result; r != nil {
		resp.Result = &api.ExecutionResult{
			Response:             r.Response,
			Metadata:             r.Metadata,
			Reasoning:            r.Reasoning,
			IntermediateSteps:    r.IntermediateSteps,
			UsedTools:            r.UsedTools,
			ExecutionTimeSeconds: r.ExecutionTimeSeconds,
		}
	}
	return resp
}
