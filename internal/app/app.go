package app

import (
	"go.uber.org/fx"

	"github.com/jazjo-app/jazjo/internal/cache"
	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/database"
	"github.com/jazjo-app/jazjo/internal/logger"
	"github.com/jazjo-app/jazjo/internal/messaging"
	"github.com/jazjo-app/jazjo/internal/observability"
	"github.com/jazjo-app/jazjo/internal/payment"
	repositoryorder "github.com/jazjo-app/jazjo/internal/repository/order"
	repositorypayment "github.com/jazjo-app/jazjo/internal/repository/payment"
	repositoryproduct "github.com/jazjo-app/jazjo/internal/repository/product"
	repositoryprofile "github.com/jazjo-app/jazjo/internal/repository/profile"
	httpserver "github.com/jazjo-app/jazjo/internal/server/http"
	serviceauth "github.com/jazjo-app/jazjo/internal/service/auth"
	servicecatalog "github.com/jazjo-app/jazjo/internal/service/catalog"
	servicecheckout "github.com/jazjo-app/jazjo/internal/service/checkout"
	servicelifecycle "github.com/jazjo-app/jazjo/internal/service/lifecycle"
	servicerewards "github.com/jazjo-app/jazjo/internal/service/rewards"
	transporthttp "github.com/jazjo-app/jazjo/internal/transport/http"
	"github.com/jazjo-app/jazjo/internal/worker"
	workerorder "github.com/jazjo-app/jazjo/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	payment.Module,
	repositoryorder.Module,
	repositorypayment.Module,
	repositoryproduct.Module,
	repositoryprofile.Module,
	serviceauth.Module,
	servicecatalog.Module,
	servicecheckout.Module,
	servicelifecycle.Module,
	servicerewards.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
