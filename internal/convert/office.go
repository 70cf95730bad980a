// Package convert PDF转换引擎封装：LibreOffice负责DOCX转PDF，unipdf负责PDF转DOCX
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrOfficeUnavailable 找不到LibreOffice可执行文件
var ErrOfficeUnavailable = errors.New("libreoffice is not installed")

// executor 命令执行抽象，便于测试
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor 基于os/exec的执行器
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Office 使用无界面LibreOffice转换文档
type Office struct {
	bin     string
	tempDir string
	timeout time.Duration
	exec    executor
}

// NewOffice 创建转换器；工作文件放在tempDir下（""为系统默认），timeout为0表示不限制
func NewOffice(bin, tempDir string, timeout time.Duration) *Office {
	if bin == "" {
		bin = "libreoffice"
	}
	return &Office{bin: bin, tempDir: tempDir, timeout: timeout, exec: osExecutor{}}
}

// Available 可执行文件是否在PATH中
func (o *Office) Available() bool {
	_, err := o.exec.LookPath(o.bin)
	return err == nil
}

// DocxToPDF 将.docx转换为PDF，任何情况下都会删除工作目录
func (o *Office) DocxToPDF(ctx context.Context, data []byte) ([]byte, error) {
	bin, err := o.exec.LookPath(o.bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOfficeUnavailable, err)
	}

	dir, err := os.MkdirTemp(o.tempDir, "doctools-")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.docx")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing input: %w", err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	out, err := o.exec.Run(ctx, bin, "--headless", "--convert-to", "pdf", "--outdir", dir, input)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return nil, fmt.Errorf("libreoffice: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("libreoffice: %w", err)
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "input.pdf"))
	if err != nil {
		return nil, fmt.Errorf("libreoffice produced no output: %w", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, errors.New("libreoffice output is not a PDF")
	}
	return pdf, nil
}
