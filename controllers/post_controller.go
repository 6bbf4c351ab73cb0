package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/inkwell/forms"
	"github.com/avolkov/inkwell/middleware"
	"github.com/avolkov/inkwell/models"
	"github.com/avolkov/inkwell/utils"
)

// PostController serves the listing, detail, create and edit pages.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// listingPayload is the cacheable part of a listing page: the posts slice and
// the pagination metadata.
type listingPayload struct {
	Posts []models.Post `json:"posts"`
	Page  utils.Page    `json:"page"`
}

// Index shows all posts, newest first, ten per page.
func (p *PostController) Index(ctx *gin.Context) {
	number := utils.ParsePageNumber(ctx.Query("page"))

	cacheKey := fmt.Sprintf("cache:posts:index:page=%d", number)
	var payload listingPayload
	if !utils.CacheGetJSON(cacheKey, &payload) {
		posts, page, err := p.pagedPosts(p.db.Model(&models.Post{}), number)
		if err != nil {
			p.serverError(ctx, err)
			return
		}
		payload = listingPayload{Posts: posts, Page: page}
		utils.CacheSetJSON(cacheKey, payload, time.Hour)
	}

	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"Posts":    payload.Posts,
		"Page":     payload.Page,
		"Username": middleware.Username(ctx),
	})
}

// GroupIndex lists all groups ordered by title.
func (p *PostController) GroupIndex(ctx *gin.Context) {
	var groups []models.Group
	if !utils.CacheGetJSON("cache:groups:index", &groups) {
		if err := p.db.Order("title ASC").Find(&groups).Error; err != nil {
			p.serverError(ctx, err)
			return
		}
		utils.CacheSetJSON("cache:groups:index", groups, time.Hour)
	}
	ctx.HTML(http.StatusOK, "group_index.html", gin.H{"Groups": groups})
}

// GroupPosts shows one group's posts, newest first.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	slug := ctx.Param("slug")

	var group models.Group
	if err := p.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.notFound(ctx)
			return
		}
		p.serverError(ctx, err)
		return
	}

	number := utils.ParsePageNumber(ctx.Query("page"))
	cacheKey := fmt.Sprintf("cache:posts:group:%s:page=%d", slug, number)
	var payload listingPayload
	if !utils.CacheGetJSON(cacheKey, &payload) {
		posts, page, err := p.pagedPosts(p.db.Model(&models.Post{}).Where("group_id = ?", group.ID), number)
		if err != nil {
			p.serverError(ctx, err)
			return
		}
		payload = listingPayload{Posts: posts, Page: page}
		utils.CacheSetJSON(cacheKey, payload, time.Hour)
	}

	ctx.HTML(http.StatusOK, "group_list.html", gin.H{
		"Group": group,
		"Posts": payload.Posts,
		"Page":  payload.Page,
	})
}

// Profile shows one author's posts and their total post count.
func (p *PostController) Profile(ctx *gin.Context) {
	username := ctx.Param("username")

	var author models.User
	if err := p.db.Where("username = ?", username).First(&author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.notFound(ctx)
			return
		}
		p.serverError(ctx, err)
		return
	}

	number := utils.ParsePageNumber(ctx.Query("page"))
	cacheKey := fmt.Sprintf("cache:posts:author:%d:page=%d", author.ID, number)
	var payload listingPayload
	if !utils.CacheGetJSON(cacheKey, &payload) {
		posts, page, err := p.pagedPosts(p.db.Model(&models.Post{}).Where("author_id = ?", author.ID), number)
		if err != nil {
			p.serverError(ctx, err)
			return
		}
		payload = listingPayload{Posts: posts, Page: page}
		utils.CacheSetJSON(cacheKey, payload, time.Hour)
	}

	ctx.HTML(http.StatusOK, "profile.html", gin.H{
		"Author":     author,
		"Posts":      payload.Posts,
		"Page":       payload.Page,
		"TotalPosts": payload.Page.TotalItems,
	})
}

// Detail shows a single post with author and group resolved.
func (p *PostController) Detail(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	canEdit := false
	if uid, authed := middleware.UserID(ctx); authed && uid == post.AuthorID {
		canEdit = true
	}

	ctx.HTML(http.StatusOK, "post_detail.html", gin.H{
		"Post":    post,
		"CanEdit": canEdit,
	})
}

// CreateForm renders the empty post form.
func (p *PostController) CreateForm(ctx *gin.Context) {
	p.renderPostForm(ctx, forms.NewPostForm("", ""), false, "/create/")
}

// Create persists a new post for the current user and redirects to their
// profile listing. Validation failures re-render the form and persist
// nothing.
func (p *PostController) Create(ctx *gin.Context) {
	form := forms.NewPostForm(ctx.PostForm("text"), ctx.PostForm("group"))
	if !form.Validate(p.db) {
		p.renderPostForm(ctx, form, false, "/create/")
		return
	}

	uid, _ := middleware.UserID(ctx)
	post := models.Post{
		Text:     utils.Sanitize(form.Text),
		AuthorID: uid,
		GroupID:  form.GroupID,
	}
	if err := p.db.Create(&post).Error; err != nil {
		p.serverError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:stats")

	ctx.Redirect(http.StatusFound, "/profile/"+middleware.Username(ctx)+"/")
}

// EditForm renders the form pre-filled with the post's current text and
// group. Non-authors are silently redirected to the post's detail page.
func (p *PostController) EditForm(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	if !p.ensureAuthor(ctx, post) {
		return
	}
	p.renderPostForm(ctx, forms.FromPost(post), true, fmt.Sprintf("/posts/%d/edit/", post.ID))
}

// Edit updates text and group of the author's own post in place; id, author
// and pub_date never change.
func (p *PostController) Edit(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	if !p.ensureAuthor(ctx, post) {
		return
	}

	form := forms.NewPostForm(ctx.PostForm("text"), ctx.PostForm("group"))
	if !form.Validate(p.db) {
		p.renderPostForm(ctx, form, true, fmt.Sprintf("/posts/%d/edit/", post.ID))
		return
	}

	updates := map[string]interface{}{
		"text": utils.Sanitize(form.Text),
	}
	if form.GroupID != nil {
		updates["group_id"] = *form.GroupID
	} else {
		// A nil *uint in the map leaves the column untouched; write NULL
		// explicitly so removing the group persists.
		updates["group_id"] = gorm.Expr("NULL")
	}
	if err := p.db.Model(&post).Updates(updates).Error; err != nil {
		p.serverError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:posts:")

	ctx.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}

// pagedPosts counts the filtered query and fetches one page, newest first.
// Ties on pub_date fall back to id so ordering stays stable.
func (p *PostController) pagedPosts(q *gorm.DB, number int) ([]models.Post, utils.Page, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, utils.Page{}, err
	}
	page := utils.NewPage(number, total)

	var posts []models.Post
	err := q.Preload("Author").Preload("Group").
		Order("pub_date DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&posts).Error
	return posts, page, err
}

// loadPost fetches the post from the :id path parameter, answering 404 when
// it does not exist.
func (p *PostController) loadPost(ctx *gin.Context) (models.Post, bool) {
	var post models.Post
	err := p.db.Preload("Author").Preload("Group").First(&post, "id = ?", ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.notFound(ctx)
		} else {
			p.serverError(ctx, err)
		}
		return models.Post{}, false
	}
	return post, true
}

// ensureAuthor redirects non-authors to the post's detail page without
// exposing the edit form or applying any change.
func (p *PostController) ensureAuthor(ctx *gin.Context, post models.Post) bool {
	uid, _ := middleware.UserID(ctx)
	if uid != post.AuthorID {
		ctx.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
		ctx.Abort()
		return false
	}
	return true
}

func (p *PostController) renderPostForm(ctx *gin.Context, form *forms.PostForm, isEdit bool, action string) {
	var groups []models.Group
	if err := p.db.Order("title ASC").Find(&groups).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "post_form.html", gin.H{
		"Form":   form,
		"Groups": groups,
		"IsEdit": isEdit,
		"Action": action,
	})
}

func (p *PostController) notFound(ctx *gin.Context) {
	ctx.HTML(http.StatusNotFound, "404.html", nil)
	ctx.Abort()
}

func (p *PostController) serverError(ctx *gin.Context, err error) {
	if utils.Sugar != nil {
		utils.Sugar.Errorf("request failed path=%s err=%v", ctx.Request.URL.Path, err)
	}
	ctx.HTML(http.StatusInternalServerError, "500.html", nil)
	ctx.Abort()
}
