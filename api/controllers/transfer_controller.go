/*
 * @module api/controllers/transfer_controller
 * @description 批量导入导出控制器：CSV解析/序列化边界，引擎只消费/产出有序行映射
 * @architecture MVC架构 - 控制器层
 * @stateFlow 导入: CSV读取 -> 可选字符集转换 -> 行映射 -> 引擎逐行写入;
 *            导出: 引擎投影 -> CSV序列化
 * @rules 导入容忍部分失败并逐行返回错误；charset=gbk时先转换为UTF-8
 * @dependencies flexdata-service/service, encoding/csv, flexdata-service/service/utils
 * @refs service/dynamic_table/transfer_service.go
 */

package controllers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"flexdata-service/api/middleware"
	"flexdata-service/service"
	"flexdata-service/service/dynamic_table"
	"flexdata-service/service/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// TransferController 批量导入导出控制器
type TransferController struct {
	transfer *dynamic_table.TransferService
}

// NewTransferController 创建批量导入导出控制器实例
func NewTransferController() *TransferController {
	return &TransferController{transfer: service.GlobalTransferService}
}

// ImportRecords 导入CSV
// @Summary 导入CSV记录
// @Description 请求体为CSV文本，首行为表头（字段英文名）；charset=gbk时先做字符集转换
// @Tags 批量传输
// @Accept text/csv
// @Produce json
// @Param id path string true "表ID"
// @Param charset query string false "源文件字符集（gbk/utf-8）"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/import [post]
func (c *TransferController) ImportRecords(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "读取请求体失败", nil))
		return
	}

	if charset := r.URL.Query().Get("charset"); charset != "" {
		body, err = utils.ConvertEncoding(body, charset, "utf-8")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "字符集转换失败: "+err.Error(), nil))
			return
		}
	}

	rows, err := parseCSVRows(body)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "CSV解析失败: "+err.Error(), nil))
		return
	}

	result, err := c.transfer.ImportRows(chi.URLParam(r, "id"), rows, middleware.ActorID(r.Context()))
	if err != nil {
		RenderError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("导入完成", result))
}

// ExportRecords 导出CSV
// @Summary 导出全部未删除记录为CSV
// @Description 表头反映当前表定义，字段删除后的孤儿数据键被静默忽略
// @Tags 批量传输
// @Produce text/csv
// @Param id path string true "表ID"
// @Success 200 {string} string "CSV内容"
// @Failure 404 {object} APIResponse
// @Router /tables/{id}/records/export [get]
func (c *TransferController) ExportRecords(w http.ResponseWriter, r *http.Request) {
	result, err := c.transfer.ExportAll(chi.URLParam(r, "id"))
	if err != nil {
		RenderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", chi.URLParam(r, "id")))

	writer := csv.NewWriter(w)
	if err := writer.Write(result.Headers); err != nil {
		return
	}
	for _, row := range result.Rows {
		if err := writer.Write(row); err != nil {
			return
		}
	}
	writer.Flush()
}

// parseCSVRows 将CSV文本解析为有序的行映射序列，首行为表头
func parseCSVRows(body []byte) ([]map[string]interface{}, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("缺少表头行: %v", err)
	}

	var rows []map[string]interface{}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
