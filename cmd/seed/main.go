package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pagedrop/internal/config"
	"github.com/pagedrop/internal/db"
	"github.com/pagedrop/internal/logger"
	"github.com/pagedrop/internal/service"
)

// 测试数据生成器
func main() {
	count := flag.Int("n", 5, "number of sample pages to create")
	drafts := flag.Int("drafts", 1, "how many of the sample pages to leave unpublished")
	flag.Parse()
	if *count < 0 || *drafts < 0 {
		fmt.Fprintln(os.Stderr, "-n and -drafts must not be negative")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", slog.String("error", err.Error()))
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		logger.Fatal("数据库初始化失败", slog.String("error", err.Error()))
	}
	defer db.Close(gdb)

	pages := service.NewPageService(db.NewPageStore(gdb))
	created, err := seedPages(context.Background(), pages, *count, *drafts)
	if err != nil {
		logger.Fatal("failed to seed pages", slog.String("error", err.Error()))
	}

	fmt.Println("测试数据生成完成！")
	for _, page := range created {
		state := "published"
		if !page.IsPublished {
			state = "draft"
		}
		fmt.Printf("  /s/%s  %-9s %s\n", page.Slug, state, page.Title)
	}
}

type pageCreator interface {
	CreatePage(ctx context.Context, input service.CreatePageInput) (*db.Page, error)
	TogglePublish(ctx context.Context, id uint, published bool) (*db.Page, error)
}

// seedPages creates n sample pages; the last drafts of them are unpublished.
func seedPages(ctx context.Context, pages pageCreator, n, drafts int) ([]*db.Page, error) {
	if n < 0 || drafts < 0 {
		return nil, fmt.Errorf("page and draft counts must not be negative (n=%d, drafts=%d)", n, drafts)
	}
	created := make([]*db.Page, 0, n)
	for i := 1; i <= n; i++ {
		page, err := pages.CreatePage(ctx, service.CreatePageInput{
			Title:   fmt.Sprintf("Sample page %d", i),
			Content: sampleHTML(i),
		})
		if err != nil {
			return created, fmt.Errorf("create sample page %d: %w", i, err)
		}
		if i > n-drafts {
			if page, err = pages.TogglePublish(ctx, page.ID, false); err != nil {
				return created, fmt.Errorf("unpublish sample page %d: %w", i, err)
			}
		}
		created = append(created, page)
	}
	return created, nil
}

func sampleHTML(i int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sample page %[1]d</title>
<style>body{font-family:system-ui,sans-serif;max-width:40rem;margin:3rem auto;line-height:1.6}</style>
</head>
<body>
<h1>Sample page %[1]d</h1>
<p>This page was generated by the seed command. Edit or delete it from the admin API.</p>
</body>
</html>
`, i)
}
