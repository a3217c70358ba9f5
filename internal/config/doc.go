// Package config загружает конфигурацию бриджа.
//
// Источник — YAML-файл (разделы tenders, sfs, storage, queues, bridge,
// governor, business_hours) поверх Default(). Переменные окружения
// переопределяют адреса и секреты, см. ApplyEnv.
package config
