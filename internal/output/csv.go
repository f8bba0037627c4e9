package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"gridcapacity/internal/capacity"
)

// WriteHeadroomCSV writes a flat spreadsheet-friendly view of the
// headroom beside the JSON output. It returns the written path.
func WriteHeadroomCSV(caseName string, headroom capacity.Headroom) (string, error) {
	folder, err := Folder(caseName)
	if err != nil {
		return "", err
	}
	path := filepath.Join(folder, Stem(caseName)+"_headroom.csv")

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"bus_number",
		"bus_name",
		"vn_kv",
		"actual_load_p_mw",
		"actual_load_q_mvar",
		"actual_gen_p_mw",
		"actual_gen_q_mvar",
		"load_avail_p_mw",
		"load_avail_q_mvar",
		"gen_avail_p_mw",
		"gen_avail_q_mvar",
		"load_limiting_factor",
		"gen_limiting_factor",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, h := range headroom {
		loadLF, genLF := "", ""
		if h.LoadLF != nil {
			loadLF = h.LoadLF.String()
		}
		if h.GenLF != nil {
			genLF = h.GenLF.String()
		}
		row := []string{
			strconv.Itoa(h.Bus.Number),
			h.Bus.Name,
			fmtFloat(h.Bus.VnKV),
			fmtFloat(h.ActualLoadMVA.P()),
			fmtFloat(h.ActualLoadMVA.Q()),
			fmtFloat(h.ActualGenMVA.P()),
			fmtFloat(h.ActualGenMVA.Q()),
			fmtFloat(h.LoadAvailMVA.P()),
			fmtFloat(h.LoadAvailMVA.Q()),
			fmtFloat(h.GenAvailMVA.P()),
			fmtFloat(h.GenAvailMVA.Q()),
			loadLF,
			genLF,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
