// Command predict 在本地工作目录上运行预测引擎并打印报告 JSON
//
//	predict -config ./config/worker.yaml -work-dir ./work/S1 -sample-id S1
//
// 工作目录中需要 gene_presence_production.csv，kmer_production.csv 和
// snp_production.csv 可选。以下参数先把上游工具的原始输出转换为工作目录中的表：
//
//	-gene-summary  ABRicate 汇总表 → gene_presence_production.csv
//	-snippy-tab    snippy snps.tab → snp_production.csv（只保留模板中的 SNP）
//	-blast-hits    tblastn outfmt "6 qseqid sseqid pident length qseq sseq" → kmer_production.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/jobctx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

var (
	configPath  = flag.String("config", "./config/worker.yaml", "配置文件路径")
	workDir     = flag.String("work-dir", "", "特征表所在目录")
	sampleID    = flag.String("sample-id", "", "样本 ID（默认取基因表中的 Genome_ID）")
	genomeFile  = flag.String("genome", "", "基因组 FASTA，用于计算 genome_size_mb")
	geneSummary = flag.String("gene-summary", "", "ABRicate summary（TSV），转换后写入工作目录")
	snippyTab   = flag.String("snippy-tab", "", "snippy snps.tab，转换为 SNP 表写入工作目录")
	blastHits   = flag.String("blast-hits", "", "tblastn 表格输出，转换为 k-mer 表写入工作目录")
	timeout     = flag.Duration("timeout", 5*time.Minute, "预测超时")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "predict failed: %v\n", err)
		if kind := errorutil.KindOf(err); kind != "" {
			fmt.Fprintf(os.Stderr, "error kind: %s\n", kind)
		}
		os.Exit(1)
	}
}

func run() error {
	if *workDir == "" {
		return fmt.Errorf("-work-dir is required")
	}

	// 1. 配置与日志（日志写 stdout，报告单独输出）
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateEngine(); err != nil {
		return err
	}
	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = jobctx.WithWorkDir(ctx, *workDir)

	// 2. 构建引擎（模板同时提供 SNP / k-mer 词表）
	handler, err := services.BuildCompositeHandler(cfg.Engine, log)
	if err != nil {
		return err
	}

	// 3. 可选：上游工具输出转特征表
	if err := prepareTables(ctx, handler.Templates(), inputs{
		GeneSummary: *geneSummary,
		SnippyTab:   *snippyTab,
		BlastHits:   *blastHits,
		SampleID:    *sampleID,
	}); err != nil {
		return err
	}
	svc := services.NewPredictionService(handler, nil, services.ServiceOptions{}, log)

	var genomeBytes int64
	if *genomeFile != "" {
		info, err := os.Stat(*genomeFile)
		if err != nil {
			return err
		}
		genomeBytes = info.Size()
	}

	// 4. 执行预测；部分失败仍然输出报告
	report, err := svc.Predict(ctx, &model.PredictBusinessData{
		JobID:           uuid.New().String(),
		SampleID:        *sampleID,
		GenomeSizeBytes: genomeBytes,
		SubmittedAt:     time.Now().UTC().Format(time.RFC3339),
		WorkDir:         *workDir,
	})
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	return err
}

// inputs 上游工具的原始输出文件，空字符串表示跳过
type inputs struct {
	GeneSummary string
	SnippyTab   string
	BlastHits   string
	SampleID    string
}

// defaultSampleID 提取流水线使用的样本标识
const defaultSampleID = "query_genome"

// prepareTables 把原始输出转换为工作目录中的特征表
// 样本标识依次取 -sample-id、已有基因表中的 Genome_ID、query_genome，三张表保持一致
func prepareTables(ctx context.Context, set *templates.Set, in inputs) error {
	sample := in.SampleID
	if in.GeneSummary != "" {
		if sample == "" {
			sample = defaultSampleID
		}
		if err := binarizeSummary(ctx, in.GeneSummary, sample); err != nil {
			return err
		}
	}
	if in.SnippyTab == "" && in.BlastHits == "" {
		return nil
	}
	if sample == "" {
		sample = existingSampleID(ctx)
	}

	if in.SnippyTab != "" {
		if err := convertSnippy(ctx, in.SnippyTab, sample, set.SNPVocabulary()); err != nil {
			return err
		}
	}
	if in.BlastHits != "" {
		if err := convertBlast(ctx, in.BlastHits, sample, set.KmerVocabulary()); err != nil {
			return err
		}
	}
	return nil
}

func existingSampleID(ctx context.Context) string {
	gene, err := features.LoadCSV(ctx, "gene", features.GeneTableFile)
	if err != nil || len(gene.Rows) == 0 {
		return defaultSampleID
	}
	for i, c := range gene.Columns {
		if c == features.IDColumn && strings.TrimSpace(gene.Rows[0][i]) != "" {
			return strings.TrimSpace(gene.Rows[0][i])
		}
	}
	return defaultSampleID
}

// binarizeSummary 读取 ABRicate 汇总表并写出 gene_presence_production.csv
func binarizeSummary(ctx context.Context, path, sample string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := features.ReadTSV("gene summary", f)
	if err != nil {
		return err
	}
	gene, err := features.BinarizeGeneSummary(summary, sample)
	if err != nil {
		return err
	}
	return features.WriteCSV(ctx, gene, features.GeneTableFile)
}

// convertSnippy snps.tab → snp_production.csv
func convertSnippy(ctx context.Context, path, sample string, vocabulary map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	variants, err := features.ReadSnippyVariants(f)
	if err != nil {
		return err
	}
	return features.WriteCSV(ctx, features.SNPTableFromVariants(sample, variants, vocabulary), features.SNPTableFile)
}

// convertBlast tblastn 命中 → kmer_production.csv
func convertBlast(ctx context.Context, path, sample string, vocabulary map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hits, err := features.ReadBlastHits(f)
	if err != nil {
		return err
	}
	return features.WriteCSV(ctx, features.KmerTableFromHits(sample, hits, vocabulary), features.KmerTableFile)
}
