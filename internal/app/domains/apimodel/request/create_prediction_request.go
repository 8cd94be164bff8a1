package request

import "github.com/reeta-042/salmonella-amr-api/common/model"

// CreatePredictionRequest 创建预测请求
// 特征表内联传入（columns + rows），或者给出提取流水线的工作目录
type CreatePredictionRequest struct {
	SampleID        string `json:"sample_id" binding:"required,max=128" example:"SRR1234567"`
	GenomeSizeBytes int64  `json:"genome_size_bytes" binding:"gte=0" example:"4857432"`
	WorkDir         string `json:"work_dir" binding:"required_without=GeneTable" example:"SRR1234567"`
	GeneTable       *Table `json:"gene_table" binding:"required_without=WorkDir"`
	KmerTable       *Table `json:"kmer_table"`
	SNPTable        *Table `json:"snp_table"`
}

// Table 宽表，Genome_ID 列为样本标识
type Table struct {
	Columns []string        `json:"columns" binding:"required,min=1,dive,required"`
	Rows    [][]interface{} `json:"rows" binding:"required"`
}

// ToBusinessData 转换为任务数据
func (r *CreatePredictionRequest) ToBusinessData() *model.PredictBusinessData {
	return &model.PredictBusinessData{
		SampleID:        r.SampleID,
		GenomeSizeBytes: r.GenomeSizeBytes,
		WorkDir:         r.WorkDir,
		GeneTable:       r.GeneTable.toPayload(),
		KmerTable:       r.KmerTable.toPayload(),
		SNPTable:        r.SNPTable.toPayload(),
	}
}

func (t *Table) toPayload() *model.TablePayload {
	if t == nil {
		return nil
	}
	return &model.TablePayload{Columns: t.Columns, Rows: t.Rows}
}
