package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"backend_crb/models"
)

// LocationImportService materializa a árvore de locais em dois níveis
// (bairros e ruas) a partir de uma planilha. A importação é destrutiva:
// todos os locais e medições existentes são removidos antes das duas
// passadas sobre as linhas.
type LocationImportService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

// NewLocationImportService cria um novo serviço de importação de locais
func NewLocationImportService(db *gorm.DB, logger *log.Logger) *LocationImportService {
	return &LocationImportService{DB: db, Logger: logger}
}

// ImportRow é uma linha da planilha de importação
type ImportRow struct {
	City         string
	Group        string // bairro
	Member       string // rua; vazio nas linhas de bairro
	Lat          *float64
	Lng          *float64
	Observations string
}

// ImportResult resume uma importação concluída
type ImportResult struct {
	GroupsCreated  int      `json:"groupsCreated"`
	MembersCreated int      `json:"membersCreated"`
	Warnings       []string `json:"warnings"`
}

// Colunas esperadas no cabeçalho da planilha
var importColumns = []string{"cidade", "bairro", "rua", "lat", "lng", "observacoes"}

// Import recria a árvore de locais a partir das linhas, em uma única
// transação. Passada 1 cria os bairros deduplicados pela chave composta
// (cidade, bairro); passada 2 cria as ruas resolvendo o pai pela mesma
// chave. Uma rua cujo bairro não aparece na planilha é pulada com aviso,
// nunca derruba a importação inteira.
func (s *LocationImportService) Import(rows []ImportRow) (*ImportResult, error) {
	result := &ImportResult{Warnings: []string{}}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Limpeza total: a importação substitui o estado anterior
		if err := tx.Where("1 = 1").Delete(&models.LocationService{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Location{}).Error; err != nil {
			return err
		}

		// Passada 1: bairros (linhas com bairro e sem rua)
		groupIDs := make(map[string]uint)
		for _, row := range rows {
			if row.Group == "" || row.Member != "" {
				continue
			}

			key := row.City + "|" + row.Group
			if _, exists := groupIDs[key]; exists {
				continue
			}

			group := models.Location{
				City:         row.City,
				Name:         row.Group,
				Lat:          row.Lat,
				Lng:          row.Lng,
				Observations: row.Observations,
				IsGroup:      true,
				ParentID:     nil,
			}
			if err := tx.Create(&group).Error; err != nil {
				return err
			}
			groupIDs[key] = group.ID
			result.GroupsCreated++
		}

		// Passada 2: ruas (linhas com bairro e rua)
		for _, row := range rows {
			if row.Group == "" || row.Member == "" {
				continue
			}

			key := row.City + "|" + row.Group
			parentID, ok := groupIDs[key]
			if !ok {
				warning := fmt.Sprintf("a rua %q não encontrou o bairro %q (%s), pulando",
					row.Member, row.Group, row.City)
				result.Warnings = append(result.Warnings, warning)
				if s.Logger != nil {
					s.Logger.Printf("Importação de locais: %s", warning)
				}
				continue
			}

			member := models.Location{
				City:         row.City,
				Name:         row.Member,
				Lat:          row.Lat,
				Lng:          row.Lng,
				Observations: row.Observations,
				IsGroup:      false,
				ParentID:     &parentID,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			result.MembersCreated++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Printf("Importação de locais concluída: %d bairros, %d ruas, %d avisos",
			result.GroupsCreated, result.MembersCreated, len(result.Warnings))
	}
	return result, nil
}

// ParseCSV lê as linhas de importação de um arquivo CSV com cabeçalho
// cidade,bairro,rua,lat,lng,observacoes
func (s *LocationImportService) ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, NewValidationError("não foi possível ler o cabeçalho do CSV: %v", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []ImportRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewValidationError("linha inválida no CSV: %v", err)
		}
		rows = append(rows, rowFromFields(fields, index))
	}
	return rows, nil
}

// ParseXLSX lê as linhas de importação da primeira planilha de um XLSX
// com o mesmo cabeçalho do CSV
func (s *LocationImportService) ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("não foi possível abrir o arquivo XLSX: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("o arquivo XLSX não possui planilhas")
	}

	allRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewValidationError("não foi possível ler a planilha: %v", err)
	}
	if len(allRows) == 0 {
		return nil, NewValidationError("a planilha está vazia")
	}

	index, err := columnIndex(allRows[0])
	if err != nil {
		return nil, err
	}

	var rows []ImportRow
	for _, fields := range allRows[1:] {
		rows = append(rows, rowFromFields(fields, index))
	}
	return rows, nil
}

// columnIndex mapeia cada coluna esperada para sua posição no cabeçalho
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(importColumns))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"cidade", "bairro"} {
		if _, ok := index[required]; !ok {
			return nil, NewValidationError("coluna obrigatória %q ausente no cabeçalho", required)
		}
	}
	return index, nil
}

func rowFromFields(fields []string, index map[string]int) ImportRow {
	get := func(column string) string {
		i, ok := index[column]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	row := ImportRow{
		City:         get("cidade"),
		Group:        get("bairro"),
		Member:       get("rua"),
		Observations: get("observacoes"),
	}
	if lat, err := strconv.ParseFloat(get("lat"), 64); err == nil {
		row.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(get("lng"), 64); err == nil {
		row.Lng = &lng
	}
	return row
}
