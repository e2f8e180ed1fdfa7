package models

import (
	"database/sql"
	"log"
	"time"

	"SeriesVideo-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	db, err := sql.Open("mysql", config.AppConfig.MySQL.DSN)
	if err != nil {
		log.Fatalf("open database failed: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("connect database failed: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("gorm init failed: %v", err)
	}
	log.Println("database connected (native SQL + GORM)")

	if err := GormDB.AutoMigrate(&Series{}, &Video{}); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}
