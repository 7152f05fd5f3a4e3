// 从 xlsx 工作簿导入课程内容
//
// 与管理接口 POST /api/admin/content/import 使用同一套导入逻辑，
// 适用于首次部署或批量更新课程数据。
//
// 用法: go run scripts/import_content.go -file content.xlsx

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"speakopoly_backend/internal/config"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/service"
	"speakopoly_backend/pkg/database"
	"speakopoly_backend/pkg/logger"
)

func main() {
	path := flag.String("file", "", "xlsx 工作簿路径")
	flag.Parse()
	if *path == "" {
		log.Fatal("请通过 -file 指定工作簿")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("无法打开工作簿: %v", err)
	}
	defer f.Close()

	importer := service.NewContentImportService(db, repository.NewContentRepository(db), repository.NewQuestRepository(db))
	report, err := importer.Import(context.Background(), f)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}

	log.Printf("导入完成：关卡 %d，单元 %d，课时 %d，练习 %d，任务 %d",
		report.Levels, report.Units, report.Lessons, report.Exercises, report.Quests)
	for _, e := range report.Errors {
		log.Printf("  [%s 第 %d 行] %s", e.Sheet, e.Row, e.Message)
	}
}
