package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"freshcast-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// SalesHistoryService CSV/Excelファイルから製品ごとの販売実績を読み込む
// HistoryStore実装。ファイルは製品IDごとに1つ（croissant.csv等）で、
// 柔軟なヘッダー（Date/日付, Quantity/Sales/販売数 等）に対応する。
// 解析済みの系列はキャッシュする。
type SalesHistoryService struct {
	mu            sync.RWMutex
	baseDir       string
	productToFile map[string]string
	cache         map[string][]models.DemandObservation
	dateLayouts   []string
	qtyColumns    []string
}

// NewSalesHistoryService 新しい販売実績サービスを作成。
// baseDir配下の*.csv / *.xlsxをファイル名（拡張子抜き）を製品IDとして登録する。
func NewSalesHistoryService(baseDir string) *SalesHistoryService {
	s := &SalesHistoryService{
		baseDir:       baseDir,
		productToFile: make(map[string]string),
		cache:         make(map[string][]models.DemandObservation),
		dateLayouts: []string{
			time.RFC3339,
			"2006-01-02",
			"2006-1-2",
			"2006/01/02",
			"2006/1/2",
			"01/02/2006",
			"20060102",
		},
		qtyColumns: []string{"quantity_sold", "quantity", "qty", "sales", "units", "販売数", "数量"},
	}
	s.scanBaseDir()
	return s
}

// RegisterProduct 製品IDとデータファイルの対応を登録・上書きする
func (s *SalesHistoryService) RegisterProduct(productID, filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeProductID(productID)
	s.productToFile[key] = filePath
	delete(s.cache, key)
}

// ListProducts 既知の製品ID一覧をソート済みで返す
func (s *SalesHistoryService) ListProducts() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.productToFile))
	for id := range s.productToFile {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetObservations 製品の[start, end]の観測を日付昇順で返す。
// startがゼロ値の場合は下限なし。重複日付は後勝ちで除去済み。
func (s *SalesHistoryService) GetObservations(productID string, start, end time.Time) ([]models.DemandObservation, error) {
	series, err := s.getOrLoad(normalizeProductID(productID))
	if err != nil {
		return nil, err
	}

	out := make([]models.DemandObservation, 0, len(series))
	for _, o := range series {
		if !start.IsZero() && o.Date.Before(day(start)) {
			continue
		}
		if !end.IsZero() && o.Date.After(day(end)) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// scanBaseDir データディレクトリから製品ファイルを自動登録する
func (s *SalesHistoryService) scanBaseDir() {
	if s.baseDir == "" {
		return
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		productID := normalizeProductID(strings.TrimSuffix(name, filepath.Ext(name)))
		s.productToFile[productID] = filepath.Join(s.baseDir, name)
	}
}

// getOrLoad キャッシュ済みの系列を返すか、ファイルから読み込む
func (s *SalesHistoryService) getOrLoad(productID string) ([]models.DemandObservation, error) {
	s.mu.RLock()
	if series, ok := s.cache[productID]; ok {
		s.mu.RUnlock()
		return series, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if series, ok := s.cache[productID]; ok { // double-check
		return series, nil
	}

	path, ok := s.productToFile[productID]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: 製品 %s の販売実績ファイルが登録されていません", ErrUnknownProduct, productID)
	}

	series, err := s.loadFile(productID, path)
	if err != nil {
		return nil, fmt.Errorf("製品 %s の販売実績の読み込みに失敗: %w", productID, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("製品 %s の販売実績が空です (%s)", productID, path)
	}

	s.cache[productID] = series
	return series, nil
}

// loadFile 拡張子に応じてCSVまたはExcelを読み込む
func (s *SalesHistoryService) loadFile(productID, path string) ([]models.DemandObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return s.parseExcel(productID, f)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return s.parseRows(productID, rows)
}

// parseExcel 先頭シートの行を取り出してCSVと共通のパーサーへ渡す
func (s *SalesHistoryService) parseExcel(productID string, reader io.Reader) ([]models.DemandObservation, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("Excelシートの行取得に失敗: %w", err)
	}
	return s.parseRows(productID, rows)
}

// parseRows ヘッダー検出と行パースの共通実装。
// 必須列: 日付, 数量。任意列: is_holiday, weather_index。
func (s *SalesHistoryService) parseRows(productID string, rows [][]string) ([]models.DemandObservation, error) {
	if len(rows) == 0 {
		return nil, errors.New("データがありません")
	}

	header := normalizeHeader(rows[0])
	dateIdx := findColumn(header, "date", "日付", "年月日", "データ日付")
	if dateIdx == -1 {
		return nil, errors.New("日付列が見つかりません")
	}
	qtyIdx := -1
	for _, name := range s.qtyColumns {
		if idx := findColumn(header, name); idx != -1 {
			qtyIdx = idx
			break
		}
	}
	if qtyIdx == -1 {
		return nil, errors.New("数量列 (quantity/sales/販売数) が見つかりません")
	}
	holidayIdx := findColumn(header, "is_holiday", "holiday", "祝日")
	weatherIdx := findColumn(header, "weather_index", "weather", "気象指数")

	var series []models.DemandObservation
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) <= dateIdx || len(row) <= qtyIdx {
			continue
		}
		dt, ok := parseAnyDate(strings.TrimSpace(row[dateIdx]), s.dateLayouts)
		if !ok {
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row[qtyIdx]), ",", ""), 64)
		if err != nil || qty < 0 {
			continue
		}

		obs := models.DemandObservation{
			ProductID: productID,
			Date:      dt,
			Quantity:  int(qty),
		}
		if holidayIdx != -1 && len(row) > holidayIdx {
			v := strings.ToLower(strings.TrimSpace(row[holidayIdx]))
			obs.IsHoliday = v == "true" || v == "1" || v == "yes"
		}
		if weatherIdx != -1 && len(row) > weatherIdx {
			if w, err := strconv.ParseFloat(strings.TrimSpace(row[weatherIdx]), 64); err == nil {
				obs.WeatherIndex = w
			}
		}
		series = append(series, obs)
	}

	if len(series) == 0 {
		return nil, errors.New("有効な行がありません")
	}

	// 日付昇順にソートし、重複日付は後勝ちで除去
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	dedup := make([]models.DemandObservation, 0, len(series))
	for _, o := range series {
		if len(dedup) > 0 && dedup[len(dedup)-1].Date.Equal(o.Date) {
			dedup[len(dedup)-1] = o
			continue
		}
		dedup = append(dedup, o)
	}
	return dedup, nil
}

// Utility helpers
func parseAnyDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}
	// 時刻付きの場合は日付部分のみ切り出して再試行
	if i := strings.IndexAny(s, " T"); i > 0 {
		part := s[:i]
		for _, layout := range layouts {
			if t, err := time.Parse(layout, part); err == nil {
				return day(t), true
			}
		}
	}
	return time.Time{}, false
}

func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		v = strings.TrimPrefix(v, "\uFEFF")
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func findColumn(hdr []string, candidates ...string) int {
	for i, v := range hdr {
		for _, c := range candidates {
			if v == c {
				return i
			}
		}
	}
	return -1
}
