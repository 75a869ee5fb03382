package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"clippy/internal/daemon"
	"clippy/internal/jobs"
	"clippy/internal/logging"
	"clippy/internal/logs"
	"clippy/internal/pipeline"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Clippy", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertJob(job *jobs.Job) JobView {
	view := JobView{
		ID:          job.ID,
		VideoID:     job.VideoID,
		VideoPath:   job.VideoPath,
		Status:      string(job.OverallStatus()),
		Progress:    job.OverallProgress(),
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		Expanded:    job.Expanded,
		Tasks:       make([]TaskView, 0, len(job.Tasks)),
	}
	for _, task := range job.Tasks {
		view.Tasks = append(view.Tasks, TaskView{
			ID:           task.ID,
			BackendJobID: task.BackendJobID,
			Type:         string(task.Type),
			Status:       string(task.Status),
			Progress:     task.Progress,
			Error:        task.Error,
		})
	}
	return view
}

func (s *service) AddJob(req AddJobRequest, resp *AddJobResponse) error {
	if len(req.Tasks) == 0 {
		return errors.New("add job requires at least one task")
	}

	cfg := s.daemon.Config()
	spec := jobs.JobSpec{
		VideoID:   strings.TrimSpace(req.VideoID),
		VideoPath: strings.TrimSpace(req.VideoPath),
	}
	for _, task := range req.Tasks {
		taskType, ok := jobs.ParseTaskType(task.Type)
		if !ok {
			return fmt.Errorf("unknown task type %q", task.Type)
		}
		taskSpec := jobs.TaskSpec{Type: taskType}
		switch taskType {
		case jobs.TaskDownload:
			download := jobs.DownloadConfig{Quality: cfg.Downloads.Quality, OutputDir: cfg.Paths.DownloadDir}
			if task.Download != nil {
				download.URL = strings.TrimSpace(task.Download.URL)
				if task.Download.OutputDir != "" {
					download.OutputDir = task.Download.OutputDir
				}
				if task.Download.Quality != "" {
					download.Quality = task.Download.Quality
				}
			}
			taskSpec.Download = &download
		case jobs.TaskAnalyze:
			analysis := jobs.AnalysisConfig{
				Provider:           cfg.Analysis.Provider,
				Model:              cfg.Analysis.Model,
				APIKey:             cfg.Analysis.APIKey,
				CustomInstructions: cfg.Analysis.CustomInstructions,
			}
			if task.Analysis != nil {
				if task.Analysis.Provider != "" {
					analysis.Provider = task.Analysis.Provider
				}
				if task.Analysis.Model != "" {
					analysis.Model = task.Analysis.Model
				}
				if task.Analysis.APIKey != "" {
					analysis.APIKey = task.Analysis.APIKey
				}
				if task.Analysis.CustomInstructions != "" {
					analysis.CustomInstructions = task.Analysis.CustomInstructions
				}
			}
			taskSpec.Analysis = &analysis
		case jobs.TaskTranscribe:
			transcription := jobs.TranscriptionConfig{
				Model:    cfg.Transcription.Model,
				Language: cfg.Transcription.Language,
			}
			if task.Transcription != nil {
				if task.Transcription.Model != "" {
					transcription.Model = task.Transcription.Model
				}
				if task.Transcription.Language != "" {
					transcription.Language = task.Transcription.Language
				}
			}
			taskSpec.Transcription = &transcription
		}
		spec.Tasks = append(spec.Tasks, taskSpec)
	}

	job, err := s.daemon.Store().AddJob(s.ctx, spec)
	if err != nil {
		return err
	}
	resp.Job = convertJob(job)
	s.log().Info("job added via IPC",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("task_count", len(job.Tasks)))

	if req.Submit {
		resp.Submitted = true
		runCtx := s.daemon.Context()
		go func() {
			if err := s.daemon.Coordinator().Submit(runCtx, job.ID); err != nil {
				s.log().Warn("submission failed",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
			}
		}()
	}
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("submit requires a job id")
	}
	if _, ok := s.daemon.Store().Job(jobID); !ok {
		return fmt.Errorf("job %s: %w", jobID, jobs.ErrNotFound)
	}

	// Blocks until every task in the job settles; clients that want
	// fire-and-forget use AddJob with Submit set instead.
	if err := s.daemon.Coordinator().Submit(s.daemon.Context(), jobID); err != nil {
		if errors.Is(err, pipeline.ErrSubmissionInFlight) {
			resp.Accepted = false
			resp.Message = err.Error()
			return nil
		}
		return err
	}
	resp.Accepted = true
	resp.Message = "job settled"
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	var filter map[jobs.Status]bool
	if len(req.Statuses) > 0 {
		filter = make(map[jobs.Status]bool, len(req.Statuses))
		for _, raw := range req.Statuses {
			status, ok := jobs.ParseStatus(raw)
			if !ok {
				continue
			}
			filter[status] = true
		}
	}

	all := s.daemon.Store().List()
	resp.Jobs = make([]JobView, 0, len(all))
	for _, job := range all {
		if filter != nil && !filter[job.OverallStatus()] {
			continue
		}
		resp.Jobs = append(resp.Jobs, convertJob(job))
	}
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("describe requires a job id")
	}
	job, ok := s.daemon.Store().Job(jobID)
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, jobs.ErrNotFound)
	}
	resp.Job = convertJob(job)
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("remove requires a job id")
	}
	resp.Removed = s.daemon.Store().Remove(s.ctx, jobID)
	if resp.Removed {
		s.log().Info("job removed via IPC", logging.String(logging.FieldJobID, jobID))
	}
	return nil
}

func (s *service) Clear(req ClearRequest, resp *ClearResponse) error {
	if req.CompletedOnly {
		resp.Removed = s.daemon.Store().ClearCompleted(s.ctx)
	} else {
		resp.Removed = s.daemon.Store().Clear(s.ctx)
	}
	s.log().Info("jobs cleared",
		logging.Int("removed_count", resp.Removed),
		logging.Bool("completed_only", req.CompletedOnly))
	if resp.Removed > 0 {
		if err := s.daemon.Notifier().NotifyQueueCleared(s.ctx, resp.Removed); err != nil {
			s.log().Warn("queue cleared notification failed", logging.Error(err))
		}
	}
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	taskID := strings.TrimSpace(req.TaskID)
	if jobID == "" || taskID == "" {
		return errors.New("retry requires job and task ids")
	}

	runCtx := s.daemon.Context()
	if err := s.daemon.Coordinator().Retry(runCtx, jobID, taskID); err != nil {
		resp.Accepted = false
		resp.Message = err.Error()
		return nil
	}
	resp.Accepted = true
	resp.Message = "task retried"
	s.log().Info("task retried via IPC",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldTaskID, taskID))
	return nil
}

func (s *service) ToggleExpansion(req ToggleRequest, resp *ToggleResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("toggle requires a job id")
	}
	resp.Toggled = s.daemon.Store().ToggleExpansion(s.ctx, jobID)
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.SessionID = status.SessionID
	resp.CachePath = status.CachePath
	resp.LockPath = status.LockPath
	resp.PID = os.Getpid()
	resp.JobStats = make(map[string]int, len(status.JobStats))
	for k, v := range status.JobStats {
		resp.JobStats[string(k)] = v
	}
	return nil
}

// Watch blocks until the watcher publishes a snapshot newer than the
// request cursor, so repeated calls observe the store's throttled
// observable rather than re-listing on a timer. Progress ticks inside one
// throttle window coalesce before they ever cross the socket.
func (s *service) Watch(req WatchRequest, resp *WatchResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 {
		wait = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(s.ctx, wait)
	defer cancel()

	snapshot, cursor, err := s.daemon.Watcher().Since(ctx, req.Cursor)
	resp.Cursor = req.Cursor
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	ordered := make([]*jobs.Job, 0, len(snapshot))
	for _, job := range snapshot {
		ordered = append(ordered, job)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	resp.Changed = true
	resp.Cursor = cursor
	resp.Jobs = make([]JobView, 0, len(ordered))
	for _, job := range ordered {
		resp.Jobs = append(resp.Jobs, convertJob(job))
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.Notifier().TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "notification sent"
	return nil
}
