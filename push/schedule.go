package push

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"delivery-gateway/push/domain"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedule é um disparo recorrente definido na configuração.
type Schedule struct {
	Name  string `mapstructure:"name"`
	Spec  string `mapstructure:"spec"`
	Title string `mapstructure:"title"`
	Body  string `mapstructure:"body"`
	URL   string `mapstructure:"url"`
}

const DefaultScheduleTimeout = 2 * time.Minute

// Scheduler roda Broadcast nos horários configurados.
// Um disparo ainda em andamento faz o próximo tick da mesma entrada ser pulado.
type Scheduler struct {
	mu sync.Mutex

	b       Broadcaster
	log     zerolog.Logger
	loc     *time.Location
	timeout time.Duration

	parser cron.Parser
	c      *cron.Cron
	defs   map[string]Schedule
	order  []string
}

func NewScheduler(b Broadcaster, log zerolog.Logger, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = DefaultScheduleTimeout
	}
	return &Scheduler{
		b:       b,
		log:     log.With().Str("component", "push.scheduler").Logger(),
		loc:     loc,
		timeout: timeout,
		parser:  cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		defs:    map[string]Schedule{},
	}
}

// Add valida e registra as entradas. Deve ser chamado antes de Start.
func (s *Scheduler) Add(schedules ...Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range schedules {
		sc.Name = strings.TrimSpace(sc.Name)
		if sc.Name == "" {
			return fmt.Errorf("push schedule %q: name is required", sc.Spec)
		}
		if _, dup := s.defs[sc.Name]; dup {
			return fmt.Errorf("push schedule %q: duplicated name", sc.Name)
		}
		if _, err := s.parser.Parse(sc.Spec); err != nil {
			return fmt.Errorf("push schedule %q: invalid spec %q: %w", sc.Name, sc.Spec, err)
		}
		s.defs[sc.Name] = sc
		s.order = append(s.order, sc.Name)
	}
	return nil
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	for _, name := range s.order {
		sc := s.defs[name]
		if _, err := c.AddFunc(sc.Spec, func() { s.run(ctx, sc) }); err != nil {
			return fmt.Errorf("push schedule %q: %w", sc.Name, err)
		}
	}
	c.Start()
	s.c = c

	s.log.Info().Int("entries", len(s.order)).Str("tz", s.loc.String()).Msg("push scheduler started")
	return nil
}

// Stop espera os disparos em andamento terminarem ou ctx acabar.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
		s.log.Info().Msg("push scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Err(ctx.Err()).Msg("push scheduler stop timed out")
	}
}

// Trigger roda uma entrada agora, fora do horário.
func (s *Scheduler) Trigger(ctx context.Context, name string) (domain.Report, error) {
	s.mu.Lock()
	sc, ok := s.defs[name]
	s.mu.Unlock()
	if !ok {
		return domain.Report{}, fmt.Errorf("push schedule %q not found", name)
	}
	return s.broadcast(ctx, sc)
}

func (s *Scheduler) run(ctx context.Context, sc Schedule) {
	if ctx.Err() != nil {
		return
	}
	rep, err := s.broadcast(ctx, sc)
	if err != nil {
		s.log.Error().Err(err).Str("schedule", sc.Name).Msg("scheduled broadcast failed")
		return
	}
	s.log.Info().Str("schedule", sc.Name).Int("sent", rep.Attempted).Msg("scheduled broadcast done")
}

func (s *Scheduler) broadcast(ctx context.Context, sc Schedule) (domain.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.b.Broadcast(ctx, domain.NewPayload(sc.Title, sc.Body, sc.URL))
}
