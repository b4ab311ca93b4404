// Package config загружает файлы заданий (YAML) и читает окружение процесса.
//
// Пример файла задания:
//
//	name: ttbar-selection
//	log_level: DEBUG
//	cycles:
//	  - name: FirstCycle
//	    mode: DISTRIBUTED
//	    endpoint: inproc://4
//	    target_lumi: 1000
//	    output_dir: out
//	    properties:
//	      MinPt: 25000
//	      Labels: [tight, iso]
//	    datasets:
//	      - type: ttbar
//	        version: v1
//	        lumi: 250
//	        max_records: 10000
//	        files:
//	          - path: data/ttbar_1.cyc
//	        streams:
//	          - name: Reco
//	            roles: [input, synchronized]
//
// Относительные пути (файлы, output_dir, cache_file) считаются от каталога файла задания.
package config
