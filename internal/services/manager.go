package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/storage"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/SAP-F-2025/proctor-service/internal/validator"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
	"github.com/google/uuid"
)

// ServiceManager hands out the services to the transport layer
type ServiceManager interface {
	Session() SessionService
	Catalog() CatalogService
	User() UserService
	Admin() AdminService
}

// Dependencies is everything the services need from the process.
type Dependencies struct {
	Repos     *repositories.Repositories
	BlobStore storage.BlobStore
	Publisher events.EventPublisher
	Metrics   MetricsRecorder
	Validator *validator.Validator
	Logger    *slog.Logger

	// Clock defaults to time.Now. Every operation reads it once.
	Clock        func() time.Time
	DisplayZone  *utils.DisplayZone
	ResultsDelay time.Duration

	EnforceSingleActiveSession bool

	// NewID generates session and test ids; defaults to random UUIDs.
	NewID func() string
}

func (d *Dependencies) withDefaults() {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.DisplayZone == nil {
		d.DisplayZone = utils.MustDisplayZone("+05:30")
	}
	if d.ResultsDelay <= 0 {
		d.ResultsDelay = visibility.DefaultDelay
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
}

type serviceManager struct {
	session SessionService
	catalog CatalogService
	user    UserService
	admin   AdminService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	deps.withDefaults()

	notifier := NewNotificationEventService(deps.Publisher, deps.Metrics, deps.Logger, deps.Clock)
	gate := visibility.NewGate(deps.ResultsDelay, deps.Clock)

	return &serviceManager{
		session: NewSessionService(deps, gate, notifier),
		catalog: NewCatalogService(deps, gate, notifier),
		user:    NewUserService(deps, notifier),
		admin:   NewAdminService(deps),
	}
}

func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Catalog() CatalogService { return m.catalog }
func (m *serviceManager) User() UserService       { return m.user }
func (m *serviceManager) Admin() AdminService     { return m.admin }
