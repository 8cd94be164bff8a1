package features

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/reeta-042/salmonella-amr-api/pkg/jobctx"
)

// WriteCSV 把表写入任务工作目录
func WriteCSV(ctx context.Context, t *Table, file string) error {
	path, err := jobctx.Path(ctx, file)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTables 按提取流水线的文件名写出三张表（nil 表跳过）
func WriteTables(ctx context.Context, gene, kmer, snp *Table) error {
	for _, item := range []struct {
		t    *Table
		file string
	}{
		{gene, GeneTableFile},
		{kmer, KmerTableFile},
		{snp, SNPTableFile},
	} {
		if item.t == nil {
			continue
		}
		if err := WriteCSV(ctx, item.t, item.file); err != nil {
			return err
		}
	}
	return nil
}
