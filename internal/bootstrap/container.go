package bootstrap

import (
	"time"

	"aayush-bot/internal/config"
	"aayush-bot/internal/constant"
	"aayush-bot/internal/controller"
	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/implementation"
	"aayush-bot/internal/repository/memory"
	"aayush-bot/internal/service"
	"aayush-bot/pkg/chatbot"
	"aayush-bot/pkg/collector"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

// Container wires the chat client's object graph: the session engine, its
// side-effect consumers, and the supporting services the REPL talks to.
type Container struct {
	Logger logger.ILogger

	SessionService    service.ISessionService
	ActivityService   service.IActivityService
	PreferenceService service.IPreferenceService

	// ConsumerService is exposed for main to run in the background.
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// The client logs to file only so the terminal stays a clean transcript.
	sysLogger := logger.NewFileOnlyLogger(cfg.App.LogFilePath)

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Repositories
	localStore := implementation.NewLocalStoreRepository(db)
	turnRepo := memory.NewTurnRepository()

	// External adapters
	geminiClient := chatbot.NewGeminiClient(chatbot.GeminiConfig{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Model:             cfg.Gemini.Model,
		SystemInstruction: constant.ChatbotSystemPromptV1,
		Temperature:       cfg.Gemini.Temperature,
	})
	collectorSync := collector.NewSync(cfg.Collector.BaseURL, sysLogger)
	collectorReader := collector.NewReader(cfg.Collector.BaseURL, cfg.Collector.AdminToken)

	// Services
	sessionService := service.NewSessionService(
		geminiClient,
		turnRepo,
		pubSub,
		localStore,
		sysLogger,
		time.Duration(cfg.App.StreamTimeoutSec)*time.Second,
	)
	activityService := service.NewActivityService(localStore, collectorReader, pubSub, sysLogger)
	preferenceService := service.NewPreferenceService(localStore, sysLogger)
	consumerService := service.NewConsumerService(pubSub, localStore, collectorSync, sysLogger)

	return &Container{
		Logger:            sysLogger,
		SessionService:    sessionService,
		ActivityService:   activityService,
		PreferenceService: preferenceService,
		ConsumerService:   consumerService,
	}
}

// CollectorContainer wires the collector binary's controllers.
type CollectorContainer struct {
	Logger logger.ILogger

	UserController  controller.IUserController
	AdminController controller.IAdminController
}

func NewCollectorContainer(db *gorm.DB, cfg *config.Config) *CollectorContainer {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	userRepo := implementation.NewCollectorUserRepository(db)
	collectorService := service.NewCollectorService(userRepo, sysLogger)

	return &CollectorContainer{
		Logger:          sysLogger,
		UserController:  controller.NewUserController(collectorService),
		AdminController: controller.NewAdminController(collectorService),
	}
}
