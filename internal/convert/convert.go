package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/zhang-zilu123/cost-ident/internal/util"
)

// Converter 文档格式转换器
// 旧版 .xls 升级为 .xlsx，.docx/.rtf 转为 PDF；具体实现视为外部协作方
type Converter interface {
	// ToXLSX 将旧版电子表格转换为 xlsx，写入 outputPath
	ToXLSX(ctx context.Context, inputPath, outputPath string) error
	// ToPDF 将文档转换为 PDF，写入 outputPath
	ToPDF(ctx context.Context, inputPath, outputPath string) error
}

// LibreOffice 基于 soffice 命令行的转换实现
type LibreOffice struct {
	Bin string // soffice 可执行文件，空值用 PATH 中的 "soffice"
}

func (l *LibreOffice) bin() string {
	if l.Bin != "" {
		return l.Bin
	}
	return "soffice"
}

// run 执行一次 soffice 转换并把产物挪到目标路径
// soffice 只支持指定输出目录，产物文件名固定为输入文件的主名
func (l *LibreOffice) run(ctx context.Context, inputPath, outputPath, format string) error {
	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, l.bin(),
		"--headless", "--norestore",
		"--convert-to", format,
		"--outdir", outDir,
		inputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("soffice 转换失败 %s: %v: %s", filepath.Base(inputPath), err, string(out))
	}

	produced := filepath.Join(outDir, util.Stem(inputPath)+"."+format)
	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("移动转换产物失败: %w", err)
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("转换产物为空或未生成: %s", outputPath)
	}
	return nil
}

// ToXLSX 旧版 xls 转为 xlsx
func (l *LibreOffice) ToXLSX(ctx context.Context, inputPath, outputPath string) error {
	return l.run(ctx, inputPath, outputPath, "xlsx")
}

// ToPDF 文档转为 PDF
func (l *LibreOffice) ToPDF(ctx context.Context, inputPath, outputPath string) error {
	return l.run(ctx, inputPath, outputPath, "pdf")
}
