package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ConfigReloader func(cfg *config.Config)

// debounce 编辑器保存时会连续触发多次写事件
const debounce = time.Second

// WatchConfig 监听配置目录，文件变更后重新加载并回调。ctx 取消时退出
func WatchConfig(ctx context.Context, configDir string, reloader ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(configDir)
	if err != nil {
		watcher.Close()
		return err
	}

	// 监听目录而不是文件，兼容原子替换（rename）式保存
	if err := watcher.Add(absPath); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// 防抖处理
				timer.Reset(debounce)
			case <-timer.C:
				// 重新加载配置
				newCfg, err := config.LoadConfig(absPath)
				if err != nil {
					logger.Log.Error("Failed to reload config", zap.Error(err))
					continue
				}
				logger.Log.Info("Config reloaded", zap.String("dir", absPath))
				reloader(newCfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Error("Config watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
