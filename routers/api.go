package routers

import (
	"context"

	"catalogadmin/audit"
	"catalogadmin/catalog"
	"catalogadmin/config"
	"catalogadmin/controllers"
	"catalogadmin/editcache"
	"catalogadmin/images"
	"catalogadmin/lookup"
	"catalogadmin/middlewares"
	"catalogadmin/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewAPI wires the backend client, the three edit caches and the stores
// behind them. The returned func releases the database and Redis clients.
func NewAPI(ctx context.Context, cfg *config.Config, logger *logrus.Logger, reg prometheus.Registerer) (*controllers.API, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	client, err := catalog.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger,
		catalog.WithMetrics(catalog.NewMetrics(reg)))
	if err != nil {
		return nil, nil, err
	}

	api := controllers.NewAPI()
	api.Log = logger
	api.Feed = editcache.NewFeed(cfg.NoticeLimit)

	var recorder editcache.Recorder
	if cfg.DBConnectionString != "" {
		db, err := audit.Open(cfg.DBConnectionString)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })

		api.Journal = audit.New(db, logger)
		if err := api.Journal.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		recorder = api.Journal
	} else {
		logger.Warn("DB_CONNECTION_STRING is empty, audit journal disabled")
	}

	rdb := newRedis(ctx, cfg.RedisAddr(), logger)
	if rdb != nil {
		closers = append(closers, func() { rdb.Close() })
	}
	api.Names = lookup.New(rdb, cfg.LookupTTL, logger)

	store, err := images.Open(ctx, cfg.Images())
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	api.Images = images.NewUploader(store, cfg.ImageMaxBytes, "/api/images", logger)

	ecfg := editcache.Config{Logger: logger, Notifier: api.Feed, Recorder: recorder}

	categories := catalog.NewCategories(client)
	brands := catalog.NewBrands(client)
	products := catalog.NewProducts(client)

	api.Categories = controllers.NewEntityHandler(
		editcache.New[models.Category](models.ResourceCategory, categories, ecfg), categories, "categories")
	api.Brands = controllers.NewEntityHandler(
		editcache.New[models.Brand](models.ResourceBrand, brands, ecfg), brands, "brands")
	api.Products = controllers.NewEntityHandler(
		editcache.New[models.Product](models.ResourceProduct, products, ecfg), products, "products")

	api.TrackNames()
	api.ProductsView()

	return api, closeAll, nil
}

func Route(api *controllers.API, logger logrus.FieldLogger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestID(), middlewares.RequestLogger(logger), CORS())

	router.GET("/health", api.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api.Categories.Register(router.Group("/api/categories"))
	api.Brands.Register(router.Group("/api/brands"))
	api.Products.Register(router.Group("/api/products"))

	imagesGroup := router.Group("/api/images")
	{
		imagesGroup.POST("", api.UploadImage)
		imagesGroup.GET("/*key", api.GetImage)
		imagesGroup.DELETE("/*key", api.DeleteImage)
	}

	router.GET("/api/notifications", api.GetNotifications)
	router.GET("/api/audit", api.GetAudit)

	return router
}

// CORS Cross Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, "+
			"Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, "+
			"If-None-Match, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID, Server-Timing")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// newRedis returns nil when addr is empty. An unreachable server is only
// logged: lookups fall back to memory.
func newRedis(ctx context.Context, addr string, logger logrus.FieldLogger) *redis.Client {
	if addr == "" {
		logger.Info("REDIS_HOST is empty, lookup names are kept in memory only")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("Cannot reach redis at %s: %v", addr, err)
	}
	return rdb
}
