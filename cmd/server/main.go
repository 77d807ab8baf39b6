package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/twin-viewer/internal/api"
	"github.com/annel0/twin-viewer/internal/config"
	"github.com/annel0/twin-viewer/internal/eventbus"
	"github.com/annel0/twin-viewer/internal/feed"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/logging"
	"github.com/annel0/twin-viewer/internal/observability"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
	"github.com/annel0/twin-viewer/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV TWIN_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🏭 Запуск сервера цифрового двойника...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		logging.Info("Конфигурация не задана, используются значения по умолчанию")
		cfg = &config.Config{}
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	metricsPort := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	logging.Info("📡 Конфигурация сервера: REST API=%s, метрики=%s", restPort, metricsPort)

	// === TELEMETRY ===
	ctx := context.Background()
	otelShutdown, err := observability.InitTelemetry(ctx, "twin-viewer")
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		otelShutdown = func(context.Context) error { return nil }
	}

	// === EVENT BUS ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Warn("⚠️ JetStream недоступен (%v), переключаемся на in-memory шину", err)
			bus = eventbus.NewMemoryBus(1024)
		} else {
			bus = jsBus
			defer jsBus.Close()
		}
	} else {
		bus = eventbus.NewMemoryBus(1024)
	}
	eventbus.Init(bus)

	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Не удалось запустить лог-слушатель шины: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus)
	busMetrics.StartHTTP(metricsPort)
	defer busMetrics.Stop()

	// === СЦЕНА ===
	logging.Debug("Построение сцены двойника...")
	sc := scene.NewScene()
	for _, el := range cfg.Scene.Elements {
		obj := scene.NewObject(el.Name, el.ID, el.Mesh, el.Material, el.Position)
		if err := sc.Add(obj); err != nil {
			logging.Error("Ошибка добавления объекта %s в сцену: %v", el.ID, err)
		}
	}
	logging.Info("✅ Сцена построена: %d объектов", sc.Len())

	// === РЕЕСТР ПОДСВЕТКИ ===
	defaultColor := highlight.DefaultColor()
	if cfg.Highlight.DefaultColor != "" {
		c, err := highlight.ParseColor(cfg.Highlight.DefaultColor)
		if err != nil {
			logging.Warn("⚠️ Неверный цвет по умолчанию %q, используется стандартный: %v", cfg.Highlight.DefaultColor, err)
		} else {
			defaultColor = c
		}
	}
	registry := highlight.NewRegistry(defaultColor)
	registered := registry.RegisterScene(sc)
	logging.Info("✅ Реестр подсветки готов: %d целей", registered)

	// === ВЫЧИСЛИТЕЛЬ РЕГИОНОВ ===
	interval := time.Duration(cfg.Update.IntervalMs) * time.Millisecond
	evaluator, err := region.NewEvaluator(registry, sc, interval)
	if err != nil {
		logging.Error("❌ Ошибка создания вычислителя регионов: %v", err)
		log.Fatalf("❌ Ошибка создания вычислителя регионов: %v", err)
	}

	for _, rc := range cfg.Regions {
		volume, err := rc.Volume.Build()
		if err != nil {
			logging.Error("Ошибка построения объёма региона %s: %v", rc.ID, err)
			continue
		}
		var colors []highlight.Color
		if rc.Color != "" {
			if c, err := highlight.ParseColor(rc.Color); err == nil {
				colors = append(colors, c)
			} else {
				logging.Warn("⚠️ Неверный цвет региона %s: %v", rc.ID, err)
			}
		}
		if err := evaluator.RegisterRegion(rc.ID, volume, colors...); err != nil {
			logging.Error("Ошибка регистрации региона %s: %v", rc.ID, err)
			continue
		}
		for _, member := range rc.Members {
			evaluator.AddMember(rc.ID, member)
		}
		if rc.Active {
			evaluator.SetActive(rc.ID, true)
		}
	}
	logging.Info("✅ Регионы зарегистрированы: %d", len(cfg.Regions))

	if cfg.Update.Continuous {
		evaluator.Start()
	}

	// === ХРАНИЛИЩЕ СОСТОЯНИЯ ===
	repo := selectStateRepo(cfg)
	defer repo.Close()

	if state, ok, err := repo.Load(ctx); err != nil {
		logging.Warn("⚠️ Ошибка восстановления состояния: %v", err)
	} else if ok {
		storage.Apply(state, registry, evaluator)
		logging.Info("✅ Состояние двойника восстановлено (сохранено %s)", state.SavedAt.Format(time.RFC3339))
	}

	autosaveStop := make(chan struct{})
	if cfg.Storage.AutosaveSeconds > 0 {
		go autosaveLoop(ctx, repo, registry, evaluator, time.Duration(cfg.Storage.AutosaveSeconds)*time.Second, autosaveStop)
	}

	// === ПОТОК ТЕЛЕМЕТРИИ ===
	var consumer *feed.Consumer
	if cfg.Feed.URL != "" {
		consumer, err = feed.NewConsumer(cfg.Feed.URL, sc, evaluator)
		if err != nil {
			logging.Error("❌ Ошибка подключения к потоку телеметрии: %v", err)
		} else {
			posSubject := cfg.Feed.PositionSubject
			if posSubject == "" {
				posSubject = "twin.telemetry.position"
			}
			cmdSubject := cfg.Feed.CommandSubject
			if cmdSubject == "" {
				cmdSubject = "twin.cmd.highlight"
			}
			if err := consumer.Start(posSubject, cmdSubject); err != nil {
				logging.Error("❌ Ошибка подписки на поток телеметрии: %v", err)
			}
		}
	}

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:      restPort,
		Registry:  registry,
		Evaluator: evaluator,
		Scene:     sc,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("💡 Примеры использования REST API:")
	logging.Info("   curl http://localhost%s/health", restPort)
	logging.Info("   curl -X POST http://localhost%s/api/elements/pump-7/toggle", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	close(autosaveStop)

	if consumer != nil {
		consumer.Close()
	}

	evaluator.Stop()

	if err := restServer.Stop(); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	// Финальное сохранение состояния
	if err := repo.Save(ctx, storage.Capture(registry, evaluator)); err != nil {
		logging.Error("❌ Ошибка сохранения состояния: %v", err)
	} else {
		logging.Info("💾 Состояние двойника сохранено")
	}

	if err := otelShutdown(ctx); err != nil {
		logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// selectStateRepo выбирает хранилище состояния по конфигурации.
// При ошибке подключения к внешнему бэкенду откатывается на память.
func selectStateRepo(cfg *config.Config) storage.StateRepo {
	switch cfg.Storage.Backend {
	case "redis":
		repo, err := storage.NewRedisStateRepo(&storage.RedisStateConfig{
			Addr:      cfg.Storage.RedisAddr,
			Password:  cfg.Storage.RedisPassword,
			DB:        cfg.Storage.RedisDB,
			KeyPrefix: "twin:",
		})
		if err != nil {
			logging.Warn("⚠️ Redis недоступен (%v), состояние хранится в памяти", err)
			return storage.NewMemoryStateRepo()
		}
		logging.Info("✅ Хранилище состояния: Redis %s", cfg.Storage.RedisAddr)
		return repo
	case "maria":
		repo, err := storage.NewMariaStateRepo(cfg.Storage.MariaDSN)
		if err != nil {
			logging.Warn("⚠️ MariaDB недоступна (%v), состояние хранится в памяти", err)
			return storage.NewMemoryStateRepo()
		}
		logging.Info("✅ Хранилище состояния: MariaDB")
		return repo
	default:
		return storage.NewMemoryStateRepo()
	}
}

// autosaveLoop периодически сохраняет снимок состояния двойника
func autosaveLoop(ctx context.Context, repo storage.StateRepo, registry *highlight.Registry, evaluator *region.Evaluator, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.Save(ctx, storage.Capture(registry, evaluator)); err != nil {
				logging.Error("Ошибка автосохранения состояния: %v", err)
			}
		case <-stop:
			return
		}
	}
}
