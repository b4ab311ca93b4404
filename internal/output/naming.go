package output

import (
	"path/filepath"
	"strings"

	"github.com/shaiso/Cyclone/internal/domain"
)

// FileExt — расширение выходных файлов.
const FileExt = ".cyc"

// FileName возвращает путь выходного файла для датасета:
//
//	<outdir>/<cycle>.<type>.<version><postfix>.cyc
//
// "::" в имени цикла заменяется на ".".
func FileName(cfg *domain.CycleConfig, ds *domain.InputDataset) string {
	name := cfg.Name + "." + ds.Type + "." + ds.Version + cfg.PostFix + FileExt
	name = strings.ReplaceAll(name, "::", ".")
	return filepath.Join(cfg.OutputDir, name)
}
